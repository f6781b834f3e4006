package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tasksync/internal/models"
)

func usersCmd(b builder) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users and pending promotion requests (superadmin)",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			users, err := a.users.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(users)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tPENDING")
			for _, u := range users {
				pending := ""
				if u.PendingRequest {
					pending = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, pending)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func promoteCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Request the next role up",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			u, err := a.users.RequestPromotion(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.sess.UpdateUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Promotion requested")
			return nil
		}),
	}
}

func setRoleCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role [user-id] [collaborator|admin|superadmin]",
		Short: "Change a user's role (superadmin)",
		Args:  cobra.ExactArgs(2),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			u, err := a.users.SetRole(cmd.Context(), args[0], models.Role(args[1]))
			if err != nil {
				return err
			}
			if me, ok := a.sess.User(); ok && me.ID == u.ID {
				if err := a.sess.UpdateUser(cmd.Context(), u); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		}),
	}
}
