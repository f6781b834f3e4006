package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tasksync/internal/apperr"
)

func registerCmd(b builder) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.sess.Register(cmd.Context(), args[0], password); err != nil {
				return err
			}
			u, _ := a.sess.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", u.Email, u.Role)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (min 6 characters)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(b builder) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.sess.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			u, _ := a.sess.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func whoamiCmd(b builder) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			u, ok := a.sess.User()
			if !ok {
				return apperr.Unauthenticated("whoami")
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) mode=%s\n", u.ID, u.Email, u.Role, a.mode)
			if u.PendingRequest {
				fmt.Fprintln(cmd.OutOrStdout(), "Promotion request pending")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}
