package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/pixuli"
	"github.com/menta2k/pixuli/pkg/backend"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tBACKEND\tTASK")
		for _, m := range pixuli.SupportedModels() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.Backend, m.Task)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nbackends: %v\n", backend.Kinds())
		fmt.Printf("formats:  %v\n", pixuli.SupportedFormats())
		return nil
	},
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check <model_path>",
	Short: "Check that a model file exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !pixuli.CheckModelAvailable(args[0]) {
			return fmt.Errorf("model not found: %s", args[0])
		}
		fmt.Printf("model available: %s\n", args[0])
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsCheckCmd)
	rootCmd.AddCommand(modelsCmd)
}
