package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gcsync/internal/model"
	"gcsync/internal/repository"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewRunRepository()
		runs, err := repo.GetRecent(historyLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range runs {
			status := "OK"
			if h.Status != model.RunStatusSuccess {
				status = "FAIL"
			}
			fmt.Printf("%-4s [%s] %s -> %s  skip=%d upsert=%d delete=%d failed=%d (%dms)\n",
				status,
				h.StartedAt.Format("2006-01-02 15:04:05"),
				h.Source, h.Destination,
				h.Skipped, h.Upserted, h.Deleted, h.Failed,
				h.DurationMS,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "n", 20, "number of history entries to show")
	rootCmd.AddCommand(historyCmd)
}
