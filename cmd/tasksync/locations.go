package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tasksync/internal/apperr"
)

func locationsCmd(b builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Manage named places",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List named places",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			places := a.places.List()
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(places)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMAPS URL")
			for _, p := range places {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.MapsURL)
			}
			return tw.Flush()
		}),
	}
	list.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	add := &cobra.Command{
		Use:   "add [name] [maps-url]",
		Short: "Add a named place (superadmin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			mapsURL := ""
			if len(args) == 2 {
				mapsURL = args[1]
			}
			p, err := a.places.Add(cmd.Context(), args[0], mapsURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", p.Name, p.ID)
			return nil
		}),
	}

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a named place (superadmin)",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.places.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		}),
	}

	open := &cobra.Command{
		Use:   "open [name]",
		Short: "Print the map link for a place name",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if _, ok := a.sess.User(); !ok {
				return apperr.Unauthenticated("open location")
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.places.Resolve(args[0]))
			return nil
		}),
	}

	cmd.AddCommand(list, add, rm, open)
	return cmd
}
