package main

import (
	"github.com/spf13/cobra"
)

type runner func(cmd *cobra.Command, a *app, args []string) error

// run membangun app untuk satu perintah dan menutupnya setelah selesai.
func (b builder) run(fn runner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := b(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a, args)
	}
}

func newRootCmd(build builder) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tasksync",
		Short:         "tasksync - field task list with offline-first sync",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Add subcommands
	rootCmd.AddCommand(registerCmd(build))
	rootCmd.AddCommand(loginCmd(build))
	rootCmd.AddCommand(logoutCmd(build))
	rootCmd.AddCommand(whoamiCmd(build))
	rootCmd.AddCommand(listCmd(build))
	rootCmd.AddCommand(addCmd(build))
	rootCmd.AddCommand(editCmd(build))
	rootCmd.AddCommand(toggleCmd(build))
	rootCmd.AddCommand(rmCmd(build))
	rootCmd.AddCommand(permsCmd(build))
	rootCmd.AddCommand(locationsCmd(build))
	rootCmd.AddCommand(usersCmd(build))
	rootCmd.AddCommand(promoteCmd(build))
	rootCmd.AddCommand(setRoleCmd(build))

	return rootCmd
}
