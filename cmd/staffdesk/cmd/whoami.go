package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in staff member",
	Long: `Show the identity staffdesk reads from the platform's auth storage,
and which resources it can open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		identity, err := loadIdentity()
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Auth storage: %s\n", cfg.Auth.Storage)
		if cfg.API.BaseURL != "" {
			fmt.Fprintf(out, "API:          %s\n", cfg.API.BaseURL)
		}
		if !identity.HasToken() && !identity.HasUser() {
			fmt.Fprintln(out, "Not signed in. Sign in to the platform to create a session.")
			return nil
		}

		user := identity.UserID
		if user == "" {
			user = "(unknown)"
		}
		token := "missing"
		if identity.HasToken() {
			token = "present"
		}
		fmt.Fprintf(out, "Staff id:     %s\n", user)
		fmt.Fprintf(out, "Token:        %s\n", token)

		var blocked []string
		for _, r := range catalog.TopLevel() {
			if identity.Require(r.RequiresToken, r.UsesUser()) != nil {
				blocked = append(blocked, r.Name)
			}
		}
		if len(blocked) > 0 {
			fmt.Fprintf(out, "Unavailable:  %s\n", strings.Join(blocked, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
