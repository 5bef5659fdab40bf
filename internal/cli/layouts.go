package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roomforge/roomforge/pkg/store"
)

// newLayoutsCmd creates the layouts command group.
func newLayoutsCmd() *cobra.Command {
	var storeURI string

	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Manage saved layout records",
	}
	cmd.PersistentFlags().StringVar(&storeURI, "store", "file:layouts",
		"store location (file:dir, sqlite:path, mongodb://...)")

	cmd.AddCommand(newLayoutsListCmd(&storeURI))
	cmd.AddCommand(newLayoutsShowCmd(&storeURI))
	cmd.AddCommand(newLayoutsDeleteCmd(&storeURI))
	return cmd
}

func newLayoutsListCmd(storeURI *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved layout records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *storeURI)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("No saved layouts")
				return nil
			}
			for _, rec := range records {
				fmt.Println(StyleValue.Render(rec.ID) + "  " +
					StyleDim.Render(fmt.Sprintf("%-20s seed %-12d %s",
						rec.Name, rec.Seed, rec.CreatedAt.Format("2006-01-02 15:04"))))
			}
			return nil
		},
	}
}

func newLayoutsShowCmd(storeURI *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved layout record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *storeURI)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			printKeyValue("Record", rec.ID)
			printKeyValue("Name", rec.Name)
			printKeyValue("Created", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			printNewline()
			printLayoutSummary(rec.Layout)

			if out != "" {
				if err := writeLayout(rec.Layout, out); err != nil {
					return err
				}
				printFile(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the layout to a file")
	return cmd
}

func newLayoutsDeleteCmd(storeURI *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved layout record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *storeURI)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

// openStore selects a store backend from a URI: file:dir for a JSON
// directory, sqlite:path for a single-file database, mongodb:// for a
// shared deployment. A bare path is treated as a file store directory.
func openStore(ctx context.Context, uri string) (store.Store, error) {
	switch {
	case strings.HasPrefix(uri, "file:"):
		return store.NewFileStore(strings.TrimPrefix(uri, "file:"))
	case strings.HasPrefix(uri, "sqlite:"):
		return store.OpenSQLite(strings.TrimPrefix(uri, "sqlite:"))
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return store.OpenMongo(ctx, uri, "roomforge")
	default:
		return store.NewFileStore(uri)
	}
}
