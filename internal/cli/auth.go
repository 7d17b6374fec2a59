package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// envPassword lets scripts pass the password without a flag.
const envPassword = "PAWCART_PASSWORD"

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and merge the guest cart into your account",
		Args:  cobra.NoArgs,
		// The login listener fires the auth-change merge.
		Annotations: map[string]string{annotationTrigger: string(types.TriggerAuthChange)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if username == "" || password == "" {
				return fmt.Errorf("login: --username and --password (or %s) are required", envPassword)
			}
			u, err := a.session.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(a.out, u)
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default: $"+envPassword+")")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTrigger: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(); err != nil {
				return systemf("logout: %w", err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}
