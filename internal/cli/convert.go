package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newConvertCmd creates the convert command.
func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Transcode a layout between JSON and binary",
		Long: `Convert reads a layout in either format and writes it in the format
implied by the output extension (.json or .rfb). Older schema versions
are migrated to the current one in the process.`,
		Example: `  roomforge convert plan.json plan.rfb
  roomforge convert plan.rfb plan.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newProgress(loggerFromContext(cmd.Context()))
			l, err := readLayout(args[0])
			if err != nil {
				return err
			}
			if err := writeLayout(l, args[1]); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Converted %s", args[0]))
			printFile(args[1])
			return nil
		},
	}
}
