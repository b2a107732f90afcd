package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded orchestration runs",
		Long: `List the run history, newest first. A run without a finish time was
interrupted before drain; its record still names every intended change.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			recs, err := rt.store.ListRecords(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tFINISHED\tCHANGES\tRESULT")
			for _, rec := range recs {
				finished := "-"
				if rec.FinishedAt != nil {
					finished = rec.FinishedAt.Format("2006-01-02T15:04:05Z")
				}
				result := "ok"
				switch {
				case rec.Error != nil:
					result = "error"
				case rec.FinishedAt == nil:
					result = "interrupted"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					rec.ID,
					rec.StartedAt.Format("2006-01-02T15:04:05Z"),
					finished,
					len(rec.Changes),
					result,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run in full",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			rec, err := rt.store.GetRecord(ctx, args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
