package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/buildtrack/backend/internal/domain/construction"
	csvimport "github.com/buildtrack/backend/internal/infrastructure/import"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/internal/infrastructure/snapshot"
	"github.com/buildtrack/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingUploader struct {
	keys []string
}

func (u *recordingUploader) Upload(_ context.Context, key string, _ []byte, _ string) error {
	u.keys = append(u.keys, key)
	return nil
}

type harness struct {
	db       *persistence.Database
	fs       afero.Fs
	uploader *recordingUploader
	deps     Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:       testutil.NewSQLiteDB(t),
		fs:       afero.NewMemMapFs(),
		uploader: &recordingUploader{},
	}
	h.deps = Deps{
		Logger:    zaptest.NewLogger(t),
		Snapshots: snapshot.NewStoreWithFs(h.fs, "public/data"),
		KeyPrefix: "snapshots/",
		OpenDB:    func() (*persistence.Database, error) { return h.db, nil },
		OpenStorage: func(context.Context) (resource.Uploader, error) {
			return h.uploader, nil
		},
	}
	return h
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, Deps{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "dbtool version dev\n", out)
}

func TestCommands_RequireDatabase(t *testing.T) {
	deps := Deps{OpenDB: func() (*persistence.Database, error) { return nil, persistence.ErrNotConfigured }}

	for _, args := range [][]string{{"tables"}, {"dump", "sites"}, {"seed", "sites"}, {"snapshot"}} {
		t.Run(args[0], func(t *testing.T) {
			_, err := run(t, deps, args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, persistence.ErrNotConfigured))
			assert.Contains(t, err.Error(), "DATABASE_URL")
		})
	}
}

func TestTablesCommand(t *testing.T) {
	h := newHarness(t)
	org := testutil.TestOrganizationID()
	require.NoError(t, persistence.Insert(context.Background(), h.db, []construction.Vendor{
		{OrgScoped: construction.NewOrgScoped(org), Name: "Acme Cement"},
		{OrgScoped: construction.NewOrgScoped(org), Name: "Bharat Steel"},
	}))

	out, err := run(t, h.deps, "tables")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(construction.Tables)+1)
	assert.Equal(t, []string{"TABLE", "ROWS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"vendors", "2"}, strings.Fields(findLine(lines, "vendors")))
	assert.Equal(t, []string{"sites", "0"}, strings.Fields(findLine(lines, "sites")))
}

func findLine(lines []string, prefix string) string {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix+" ") {
			return l
		}
	}
	return ""
}

func TestDumpCommand(t *testing.T) {
	t.Run("prints the API envelope", func(t *testing.T) {
		h := newHarness(t)
		org := testutil.TestOrganizationID()
		require.NoError(t, persistence.Insert(context.Background(), h.db, []construction.Vendor{
			{OrgScoped: construction.NewOrgScoped(org), Name: "Bharat Steel"},
			{OrgScoped: construction.NewOrgScoped(org), Name: "Acme Cement"},
		}))

		out, err := run(t, h.deps, "dump", "vendors")
		require.NoError(t, err)

		var env struct {
			Success bool             `json:"success"`
			Count   int              `json:"count"`
			Data    []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &env))
		assert.True(t, env.Success)
		assert.Equal(t, 2, env.Count)
		require.Len(t, env.Data, 2)
		assert.Equal(t, "Acme Cement", env.Data[0]["name"])
	})

	t.Run("serves the snapshot for an empty fallback resource", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, afero.WriteFile(h.fs, "public/data/purchases.json",
			[]byte(`[{"invoice_number":"INV-1"}]`), 0o644))

		out, err := run(t, h.deps, "dump", "purchases", "--pretty=false")
		require.NoError(t, err)
		assert.Equal(t, `{"success":true,"data":[{"invoice_number":"INV-1"}],"count":1,"source":"json_fallback"}`+"\n", out)
	})

	t.Run("summary counts every table", func(t *testing.T) {
		h := newHarness(t)
		out, err := run(t, h.deps, "dump", "summary")
		require.NoError(t, err)

		var env struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &env))
		assert.Equal(t, len(construction.Tables), env.Count)
	})

	t.Run("unknown resource", func(t *testing.T) {
		h := newHarness(t)
		_, err := run(t, h.deps, "dump", "invoices")
		assert.ErrorIs(t, err, resource.ErrUnknownResource)
	})
}

func TestSeedCommand(t *testing.T) {
	h := newHarness(t)

	out, err := run(t, h.deps, "seed", "sites", "-n", "3", "--seed", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "Created organization ")
	assert.Contains(t, out, "Inserted 3 rows into sites")

	count, err := h.db.Count(context.Background(), construction.TableSites)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = run(t, h.deps, "seed", "sites", "--org", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid --org")
}

func TestImportCommand(t *testing.T) {
	h := newHarness(t)
	org := testutil.TestOrganizationID()

	dir := t.TempDir()
	file := filepath.Join(dir, "vendors.csv")
	require.NoError(t, os.WriteFile(file, []byte(strings.Join([]string{
		"Name,Contact Person,Email",
		"Acme Cement,R. Iyer,sales@acme.example",
		",Nobody,",
		"Bharat Steel,,not-an-email",
	}, "\n")), 0o644))

	t.Run("dry run writes nothing", func(t *testing.T) {
		out, err := run(t, h.deps, "import", "vendors", file, "--org", org.String(), "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "vendors: 3 rows read, 1 valid, 0 imported, 2 with errors")
		assert.Contains(t, out, "Dry run: nothing was written")

		count, err := h.db.Count(context.Background(), construction.TableVendors)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("imports valid rows", func(t *testing.T) {
		out, err := run(t, h.deps, "import", "vendors", file, "--org", org.String())
		require.NoError(t, err)
		assert.Contains(t, out, "1 valid, 1 imported")
		assert.NotContains(t, out, "Dry run")

		count, err := h.db.Count(context.Background(), construction.TableVendors)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, h.deps, "import", "vendors", filepath.Join(dir, "missing.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	legacy := filepath.Join(dir, "legacy.csv")
	require.NoError(t, os.WriteFile(legacy, []byte("Name,Contact Person\nCaf\xe9 Interiors,J. M\xfcller\n"), 0o644))

	t.Run("legacy charset needs --encoding", func(t *testing.T) {
		_, err := run(t, h.deps, "import", "vendors", legacy, "--org", org.String())
		assert.ErrorIs(t, err, csvimport.ErrInvalidEncoding)
	})

	t.Run("imports windows-1252", func(t *testing.T) {
		out, err := run(t, h.deps, "import", "vendors", legacy, "--org", org.String(), "--encoding", "windows-1252")
		require.NoError(t, err)
		assert.Contains(t, out, "1 valid, 1 imported")

		count, err := h.db.Count(context.Background(), construction.TableVendors)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := run(t, h.deps, "import", "vendors", legacy, "--encoding", "klingon")
		assert.ErrorIs(t, err, csvimport.ErrUnknownEncoding)
	})
}

func TestSnapshotCommand(t *testing.T) {
	h := newHarness(t)
	org := testutil.TestOrganizationID()
	require.NoError(t, persistence.Insert(context.Background(), h.db, []construction.WorkProgress{{
		OrgScoped:          construction.NewOrgScoped(org),
		Description:        "Slab casting, level 2",
		ProgressPercentage: decimal.NewFromInt(40),
		WorkDate:           testutil.Date(2024, 3, 5),
		Status:             "in_progress",
	}}))

	t.Run("writes local files only", func(t *testing.T) {
		out, err := run(t, h.deps, "snapshot")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote public/data/purchases.json (0 rows)")
		assert.Contains(t, out, "Wrote public/data/work-progress.json (1 rows)")
		assert.Contains(t, out, "2 snapshots refreshed in public/data")
		assert.Empty(t, h.uploader.keys)

		rows, err := h.deps.Snapshots.Load("work-progress.json")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("uploads with --upload", func(t *testing.T) {
		out, err := run(t, h.deps, "snapshot", "--upload")
		require.NoError(t, err)
		assert.Contains(t, out, "uploaded snapshots/work-progress.json")
		assert.Equal(t, []string{"snapshots/purchases.json", "snapshots/work-progress.json"}, h.uploader.keys)
	})

	t.Run("upload without storage", func(t *testing.T) {
		deps := h.deps
		deps.OpenStorage = nil
		_, err := run(t, deps, "snapshot", "--upload")
		assert.ErrorIs(t, err, errStorageNotConfigured)
	})
}
