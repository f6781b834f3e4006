package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/internal/tasks"
)

// locationFlags membaca --location, --lat dan --lng. Koordinat hanya
// dipakai bila keduanya diisi.
type locationFlags struct {
	name     string
	lat, lng float64
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "location", "l", "", "Place name")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "Longitude")
}

func (f *locationFlags) changed(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("location") || cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
}

func (f *locationFlags) value(cmd *cobra.Command) *models.Location {
	hasCoords := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")
	if f.name == "" && !hasCoords {
		return nil
	}
	loc := &models.Location{Name: f.name}
	if hasCoords {
		loc.Coords = &models.Coordinates{Latitude: f.lat, Longitude: f.lng}
	}
	return loc
}

func formatLocation(l *models.Location) string {
	switch {
	case l == nil:
		return "-"
	case l.Coords != nil && l.Name != "":
		return fmt.Sprintf("%s (%.5f,%.5f)", l.Name, l.Coords.Latitude, l.Coords.Longitude)
	case l.Coords != nil:
		return fmt.Sprintf("%.5f,%.5f", l.Coords.Latitude, l.Coords.Longitude)
	default:
		return l.Name
	}
}

func printTasks(w io.Writer, list []models.Task) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No tasks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tLOCATION\tASSIGNEE")
	for _, t := range list {
		done := " "
		if t.Status.Completed() {
			done = "x"
		}
		assignee := t.AssignedTo
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\t%s\n", t.ID, done, t.Title, formatLocation(t.Location), assignee)
	}
	return tw.Flush()
}

func listCmd(b builder) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks you own or are assigned to",
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.tasks.List(cmd.Context()); err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(a.tasks.Snapshot())
			}
			return printTasks(cmd.OutOrStdout(), a.tasks.Snapshot())
		}),
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func addCmd(b builder) *cobra.Command {
	var (
		loc   locationFlags
		draft tasks.Draft
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			draft.Title = strings.Join(args, " ")
			draft.Location = loc.value(cmd)
			res, err := a.tasks.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			if res.UploadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: image not attached: %s\n", apperr.Message(res.UploadErr))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", res.Task.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&draft.Description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&draft.ImageRef, "image", "i", "", "Photo path or URL")
	cmd.Flags().StringVarP(&draft.AssignedTo, "assign", "a", "", "Assignee user id (admin only)")
	loc.register(cmd)
	return cmd
}

// loadTask memuat koleksi lalu memastikan id ada.
func loadTask(cmd *cobra.Command, a *app, id string) error {
	if err := a.tasks.List(cmd.Context()); err != nil {
		return err
	}
	if _, ok := a.tasks.Get(id); !ok {
		return apperr.NotFound("load", apperr.TaskNotFound)
	}
	return nil
}

func editCmd(b builder) *cobra.Command {
	var (
		loc                                              locationFlags
		title, description, image, note, proof, assignee string
	)
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := loadTask(cmd, a, args[0]); err != nil {
				return err
			}
			var p models.TaskPatch
			set := func(flag string, v *string, dst **string) {
				if cmd.Flags().Changed(flag) {
					*dst = models.String(*v)
				}
			}
			set("title", &title, &p.Title)
			set("description", &description, &p.Description)
			set("image", &image, &p.ImageURI)
			set("note", &note, &p.Note)
			set("completion-image", &proof, &p.CompletionImageURI)
			set("assign", &assignee, &p.AssignedTo)
			if loc.changed(cmd) {
				p.Location = loc.value(cmd)
				if p.Location == nil {
					p.Location = &models.Location{}
				}
			}
			if p.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change")
				return nil
			}
			t, err := a.tasks.Update(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", t.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&image, "image", "i", "", "Photo path or URL")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Completion note")
	cmd.Flags().StringVar(&proof, "completion-image", "", "Completion photo path or URL")
	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Assignee user id, empty to unassign")
	loc.register(cmd)
	return cmd
}

func toggleCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [id]",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := loadTask(cmd, a, args[0]); err != nil {
				return err
			}
			if err := a.tasks.ToggleCompletion(cmd.Context(), args[0]); err != nil {
				return err
			}
			t, _ := a.tasks.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", t.ID, t.Status)
			return nil
		}),
	}
}

func rmCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task you own",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := loadTask(cmd, a, args[0]); err != nil {
				return err
			}
			if err := a.tasks.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func permsCmd(b builder) *cobra.Command {
	return &cobra.Command{
		Use:   "perms [id]",
		Short: "Show which fields of a task you may edit",
		Args:  cobra.ExactArgs(1),
		RunE: b.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := loadTask(cmd, a, args[0]); err != nil {
				return err
			}
			d, err := a.tasks.Permissions(args[0])
			if err != nil {
				return err
			}
			fields := make([]string, 0, len(d.Writable))
			for _, f := range d.Writable.Sorted() {
				fields = append(fields, string(f))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode: %s\nwritable: %s\n", d.Mode, strings.Join(fields, ", "))
			return nil
		}),
	}
}
