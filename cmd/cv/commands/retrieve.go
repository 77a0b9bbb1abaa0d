package commands

import (
	"context"
	"fmt"
	"os"

	"contextvault/pkg/exporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	retrieveLimit    int
	retrieveMaxBytes int64
	retrieveWindow   int
	retrieveOut      string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <context-pattern> [blob-pattern]",
	Short: "Fetch the bytes of all matching blobs",
	Long: `Query by the same pattern pair as 'cv query', then fetch the matching
blobs concurrently under the configured window and byte budget. Results come
back in enumeration order; individual fetch failures are reported but do not
abort the batch.`,
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

		window := retrieveWindow
		if window == 0 {
			window = viper.GetInt("retrieve.window")
		}

		res, err := CV.Explorer.Retrieve(context.Background(),
			ctxPattern, blobPattern, retrieveLimit, retrieveMaxBytes, window)
		if err != nil {
			return fmt.Errorf("retrieve failed: %w", err)
		}

		exporter.PrintSummary(os.Stdout, res)

		// 可选：把结果打包落盘
		if retrieveOut != "" {
			f, err := os.Create(retrieveOut)
			if err != nil {
				return fmt.Errorf("failed to create pack file: %w", err)
			}
			defer f.Close()

			if err := exporter.WritePack(f, res); err != nil {
				return fmt.Errorf("failed to write pack: %w", err)
			}
			fmt.Printf("\n✅ Wrote %d blob(s) to %s\n", len(res.Items), retrieveOut)
		}
		return nil
	},
}

func init() {
	retrieveCmd.Flags().IntVar(&retrieveLimit, "limit", 0, "Max results (0 = unlimited)")
	retrieveCmd.Flags().Int64Var(&retrieveMaxBytes, "max-bytes", 0, "Total byte budget (0 = unlimited)")
	retrieveCmd.Flags().IntVar(&retrieveWindow, "window", 0, "Concurrent fetch window (0 = config default)")
	retrieveCmd.Flags().StringVar(&retrieveOut, "out", "", "Write retrieved blobs to a CBOR pack file")
	rootCmd.AddCommand(retrieveCmd)
}
