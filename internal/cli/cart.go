package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the active cart",
	}
	cmd.AddCommand(newCartShowCmd(a))
	cmd.AddCommand(newCartAddCmd(a))
	cmd.AddCommand(newCartRemoveCmd(a))
	cmd.AddCommand(newCartClearCmd(a))
	return cmd
}

func parsePetID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pet id %q: %w", arg, types.ErrInvalidPetID)
	}
	return id, nil
}

func newCartShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the active cart",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTrigger: string(types.TriggerCartPage)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.reconciler.Trigger(ctx, types.TriggerCartPage); err != nil {
				a.logger.Debug("merge on cart show", zap.Error(err))
			}
			c, kind, err := a.carts.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("load cart: %w", err)
			}
			return a.printCart(c, kind)
		},
	}
}

func newCartAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <pet-id>",
		Short: "Add a pet to the active cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePetID(args[0])
			if err != nil {
				return err
			}
			c, kind, err := a.carts.Add(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printCart(c, kind)
		},
	}
}

func newCartRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <pet-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a pet from the active cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePetID(args[0])
			if err != nil {
				return err
			}
			c, kind, err := a.carts.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printCart(c, kind)
		},
	}
}

func newCartClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every pet from your account cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.carts.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			c, kind := a.carts.Active()
			return a.printCart(c, kind)
		},
	}
}
