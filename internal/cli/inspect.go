package cli

import (
	"github.com/spf13/cobra"
)

// newInspectCmd creates the inspect command.
func newInspectCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a serialized layout file",
		Long: `Inspect decodes a layout file in either format and prints a summary:
map size, seed, rooms by type, corridor breakdown, and a connectivity
check. With --validate the full structural validation runs as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readLayout(args[0])
			if err != nil {
				return err
			}
			printLayoutSummary(l)
			if validate {
				if err := l.Validate(); err != nil {
					printError("validation failed: %v", err)
					return err
				}
				printSuccess("all structural invariants hold")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "run full structural validation")
	return cmd
}
