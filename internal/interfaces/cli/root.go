// Package cli implements the dbtool operational commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/internal/infrastructure/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags
var Version = "dev"

// Deps are the services commands run against. OpenDB and OpenStorage are called
// lazily so commands that do not need them work without configuration; the
// caller owns and closes what they return.
type Deps struct {
	Logger      *zap.Logger
	Snapshots   *snapshot.Store
	KeyPrefix   string
	Timeout     time.Duration
	OpenDB      func() (*persistence.Database, error)
	OpenStorage func(ctx context.Context) (resource.Uploader, error)
}

type app struct {
	deps Deps
	db   *persistence.Database
}

// NewRootCommand builds the dbtool command tree
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Minute
	}
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:           "dbtool",
		Short:         "Inspect and load the construction database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.tablesCommand(),
		a.dumpCommand(),
		a.seedCommand(),
		a.importCommand(),
		a.snapshotCommand(),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("dbtool version %s\n", Version)
		},
	}
}

// database opens the connection once per invocation
func (a *app) database() (*persistence.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.deps.OpenDB == nil {
		return nil, persistence.ErrNotConfigured
	}
	db, err := a.deps.OpenDB()
	if err != nil {
		if errors.Is(err, persistence.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: set DATABASE_URL and DATABASE_SERVICE_KEY", err)
		}
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.deps.Timeout)
}

// service builds the same resource service the HTTP server uses
func (a *app) service() (*resource.Service, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return resource.NewService(resource.NewDatabaseRegistry(db), db, a.deps.Snapshots, a.deps.Logger), nil
}

var errStorageNotConfigured = errors.New("object storage is not configured: set storage.bucket, storage.access_key and storage.secret_key")
