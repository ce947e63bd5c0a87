package cli

import (
	"fmt"
	"os"

	importapp "github.com/buildtrack/backend/internal/application/import"
	seedapp "github.com/buildtrack/backend/internal/application/seed"
	csvimport "github.com/buildtrack/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func parseOrg(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --org: %w", err)
	}
	return id, nil
}

func (a *app) seedCommand() *cobra.Command {
	var (
		rows int
		org  string
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "seed <table>",
		Short: "Insert synthetic rows into a table",
		Long: `Generates validated rows for a table. Site, vendor and material references
point at rows that already exist in the organization. Without --org a new
organization is created first.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: seedapp.Tables(),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := parseOrg(org)
			if err != nil {
				return err
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			res, err := seedapp.NewSeeder(db, seed, a.deps.Logger).Seed(ctx, args[0], rows, orgID)
			if err != nil {
				return err
			}
			if res.CreatedOrganization {
				cmd.Printf("Created organization %s\n", res.OrganizationID)
			}
			cmd.Printf("Inserted %d rows into %s\n", res.Inserted, res.Table)
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to insert")
	cmd.Flags().StringVar(&org, "org", "", "Organization ID the rows belong to")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible data (0 = random)")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var (
		org       string
		dryRun    bool
		maxErrors int
		charset   string
	)
	cmd := &cobra.Command{
		Use:   "import <table> <file.csv>",
		Short: "Import a CSV export into a table",
		Long: `Reads a CSV file whose headers name the table's columns (case, spaces and
dashes are ignored). Money columns may carry currency symbols and thousands
separators; dates may be YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY or "2 Jan 2006".
Files are read as UTF-8 (or UTF-16 with a byte order mark) unless --encoding
names another charset, e.g. windows-1252 for older Excel exports.
Rows with errors are reported and skipped; valid rows are inserted.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: importapp.Tables(),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := parseOrg(org)
			if err != nil {
				return err
			}
			enc, err := csvimport.LookupEncoding(charset)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := a.database()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			res, err := importapp.NewService(db, a.deps.Logger).Import(ctx, args[0], f, importapp.Options{
				OrganizationID: orgID,
				MaxErrors:      maxErrors,
				DryRun:         dryRun,
				Encoding:       enc,
			})
			if err != nil {
				return err
			}

			cmd.Printf("%s: %d rows read, %d valid, %d imported, %d with errors\n",
				res.Table, res.TotalRows, res.ValidRows, res.ImportedRows, res.ErrorRows)
			for _, e := range res.Errors {
				cmd.Printf("  - %s\n", e.Error())
			}
			if res.IsTruncated {
				cmd.Printf("  ... %d errors in total\n", res.TotalErrors)
			}
			if dryRun {
				cmd.Println("Dry run: nothing was written")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization ID for every row (otherwise read from an organization_id column)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without inserting")
	cmd.Flags().IntVar(&maxErrors, "max-errors", 100, "Maximum row errors to report")
	cmd.Flags().StringVar(&charset, "encoding", "utf-8", "Character encoding of the file (WHATWG label)")
	return cmd
}
