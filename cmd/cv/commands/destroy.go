package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <context>...",
	Short: "Destroy contexts and everything inside them",
	Long: `Remove the named contexts: the blob bytes, the metadata index entries,
and the context records themselves. Destroying a context that does not exist
is not an error.`,
	Args: cobra.MinimumNArgs(1), // 至少指定一个 context
	RunE: func(cmd *cobra.Command, args []string) error {
		if CV == nil {
			return fmt.Errorf("app not initialized")
		}

		report, err := CV.Explorer.Destroy(context.Background(), args)
		if err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}

		fmt.Printf("✅ Destroyed %d context(s)\n", report.Destroyed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}
