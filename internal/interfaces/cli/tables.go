package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/interfaces/http/dto"
	"github.com/spf13/cobra"
)

func (a *app) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List every table with its row count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tROWS")
			for _, table := range construction.Tables {
				count, err := db.Count(ctx, table)
				if err != nil {
					fmt.Fprintf(w, "%s\terror: %v\n", table, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\n", table, count)
			}
			return w.Flush()
		},
	}
}

func (a *app) dumpCommand() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "dump <resource>",
		Short: "Print a resource exactly as /api/db serves it",
		Long: `Runs the same read the API runs for the resource, including the snapshot
fallback, and prints the JSON envelope. Resources: organizations, sites, vendors,
materials, vehicles, purchases, expenses, work-progress, tenders, summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			result, err := svc.Read(ctx, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(dto.NewListResponse(result.Data, result.Count, string(result.Source)))
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", true, "Indent the JSON output")
	return cmd
}
