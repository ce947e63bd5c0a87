package cli

import (
	"context"
	"time"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// presigner is implemented by uploaders that can hand out temporary download links
type presigner interface {
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

func (a *app) snapshotCommand() *cobra.Command {
	var (
		upload  bool
		linkTTL time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh the fallback JSON snapshots from live data",
		Long: `Reads every resource that has a snapshot fallback straight from the database
and rewrites its file in the snapshot directory. With --upload the same bytes
are published to the configured object storage bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			var uploader resource.Uploader
			if upload {
				if a.deps.OpenStorage == nil {
					return errStorageNotConfigured
				}
				if uploader, err = a.deps.OpenStorage(ctx); err != nil {
					return err
				}
			}

			exporter := resource.NewExporter(resource.NewDatabaseRegistry(db), a.deps.Snapshots, uploader, a.deps.KeyPrefix, a.deps.Logger)
			results, err := exporter.Export(ctx)
			for _, r := range results {
				line := "Wrote " + a.deps.Snapshots.Path(r.File)
				if r.Key != "" {
					line += " and uploaded " + r.Key
				}
				cmd.Printf("%s (%d rows)\n", line, r.Count)
				if signer, ok := uploader.(presigner); ok && r.Key != "" && linkTTL > 0 {
					url, expires, err := signer.DownloadURL(ctx, r.Key, linkTTL)
					if err != nil {
						a.deps.Logger.Warn("Failed to presign snapshot", zap.String("key", r.Key), zap.Error(err))
						continue
					}
					cmd.Printf("  %s (expires %s)\n", url, expires.Format(time.RFC3339))
				}
			}
			if err != nil {
				return err
			}
			cmd.Printf("%d snapshots refreshed in %s\n", len(results), a.deps.Snapshots.Dir())
			return nil
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "Also upload the snapshots to object storage")
	cmd.Flags().DurationVar(&linkTTL, "link-ttl", 0, "Print a presigned download link valid this long for each upload")
	return cmd
}
