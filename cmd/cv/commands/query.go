package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var queryLimit int

var queryCmd = &cobra.Command{
	Use:   "query <context-pattern> [blob-pattern]",
	Short: "List blob identities matching a pair of regexes",
	Long: `Enumerate blob identities whose context name and blob name each fully
match the given regular expressions. Patterns are anchored: "exp_1" does not
match "exp_10". The blob pattern defaults to ".*".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if CV == nil {
			return fmt.Errorf("app not initialized")
		}

		ctxPattern := args[0]
		blobPattern := ".*"
		if len(args) > 1 {
			blobPattern = args[1]
		}

		ids, err := CV.Explorer.Query(context.Background(), ctxPattern, blobPattern, queryLimit)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		if len(ids) == 0 {
			fmt.Println("No blobs found")
			return nil
		}

		fmt.Printf("Found %d blob(s):\n", len(ids))
		for _, id := range ids {
			fmt.Printf("  %s\n", id)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Max results (0 = unlimited)")
	rootCmd.AddCommand(queryCmd)
}
