package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/buildtrack/backend/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// schemaMigrator is the part of migration.Migrator the commands drive
type schemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

type openFunc func(src migration.Source, log *zap.Logger) (schemaMigrator, error)

type migrateCLI struct {
	log  *zap.Logger
	open openFunc
	path string
}

func newRootCommand(log *zap.Logger, open openFunc) *cobra.Command {
	c := &migrateCLI{log: log, open: open}

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and author BuildTrack schema migrations",
		Long: `Applies the SQL migrations in ./migrations to the database named by
DATABASE_URL and DATABASE_SERVICE_KEY. The migrations are compiled into the
binary; --path reads them from a directory instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.path, "path", "", "Read migrations from this directory instead of the embedded set")

	root.AddCommand(
		c.dbCommand("up", "Apply all pending migrations", cobra.NoArgs, func(m schemaMigrator, _ []string) error {
			return m.Up()
		}),
		c.dbCommand("down", "Roll back all migrations", cobra.NoArgs, func(m schemaMigrator, _ []string) error {
			return m.Down()
		}),
		c.dbCommand("step <n>", "Apply n migrations; negative n rolls back (use -- before a negative n)", cobra.ExactArgs(1), func(m schemaMigrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		}),
		c.dbCommand("goto <version>", "Migrate up or down to a specific version", cobra.ExactArgs(1), func(m schemaMigrator, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.GoTo(uint(v))
		}),
		c.dbCommand("force <version>", "Set the version after a failed run without migrating", cobra.ExactArgs(1), func(m schemaMigrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.Force(v)
		}),
		c.versionCommand(),
		c.createCommand(),
		c.listCommand(),
	)
	return root
}

func (c *migrateCLI) source() migration.Source {
	if c.path != "" {
		return migration.FromDir(c.path)
	}
	return migration.Embedded()
}

// dbCommand builds a subcommand that needs a live migrator
func (c *migrateCLI) dbCommand(use, short string, args cobra.PositionalArgs, fn func(schemaMigrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			return c.withMigrator(func(m schemaMigrator) error {
				return fn(m, a)
			})
		},
	}
}

func (c *migrateCLI) withMigrator(fn func(schemaMigrator) error) (err error) {
	m, err := c.open(c.source(), c.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(m)
}

func (c *migrateCLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(func(m schemaMigrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if v == 0 {
					cmd.Println("No migrations applied")
					return nil
				}
				cmd.Printf("Version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	}
}

func (c *migrateCLI) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "create <name> [description]",
		Short:   "Write an empty up/down migration pair",
		Args:    cobra.RangeArgs(1, 2),
		Example: `  migrate create add_tender_documents "Attachments uploaded with a tender"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			dir := c.path
			if dir == "" {
				dir = defaultMigrationsDir
			}
			mf, err := migration.NewCreator(dir).Create(args[0], description)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s\n        %s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func (c *migrateCLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fsys := migration.EmbeddedFS()
			if c.path != "" {
				fsys = os.DirFS(c.path)
			}
			names, err := migration.List(fsys)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				cmd.Println("No migrations found")
				return nil
			}
			for _, name := range names {
				cmd.Printf("  - %s\n", name)
			}
			return nil
		},
	}
}
