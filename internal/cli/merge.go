package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pawcart/internal/cart"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "merge",
		Short:       "Merge the guest cart into your account cart now",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTrigger: string(types.TriggerManual)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				return fmt.Errorf("merge: %w, run 'pawcart login' first", types.ErrNotAuthenticated)
			}
			out, err := a.reconciler.Trigger(cmd.Context(), types.TriggerManual)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(a.out, out)
			}
			switch out.Status {
			case cart.StatusMerged:
				c, kind := a.carts.Active()
				return a.printCart(c, kind)
			case cart.StatusNothing:
				fmt.Fprintln(a.out, "Nothing to merge")
			default:
				fmt.Fprintln(a.out, "Merge skipped: local storage unavailable")
			}
			return nil
		},
	}
}

// statusView is the JSON shape of the status command.
type statusView struct {
	Authenticated bool           `json:"authenticated"`
	User          *types.User    `json:"user,omitempty"`
	Kind          types.CartKind `json:"kind"`
	Count         int            `json:"count"`
	GuestToken    bool           `json:"guestToken"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show who is logged in and the active cart size",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTrigger: string(types.TriggerHeader)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.reconciler.Trigger(ctx, types.TriggerHeader); err != nil {
				a.logger.Debug("merge on status", zap.Error(err))
			}
			c, kind, err := a.carts.Refresh(ctx)
			if err != nil {
				// Fall back to the last known cart like an offline header.
				c, kind = a.carts.Active()
			}
			token, _ := a.carts.Tokens().Current()

			v := statusView{Kind: kind, Count: c.Total, GuestToken: token != ""}
			if u, ok := a.session.Current(); ok {
				v.Authenticated = true
				v.User = &u
			}
			if a.flags.jsonMode {
				return printJSON(a.out, v)
			}

			if v.User != nil {
				fmt.Fprintf(a.out, "User: %s (%s)\n", v.User.Username, v.User.Role)
			} else {
				fmt.Fprintln(a.out, "User: guest")
			}
			fmt.Fprintf(a.out, "%s: %s\n", cartTitle(kind), itemCount(c.Total))
			return nil
		},
	}
}
