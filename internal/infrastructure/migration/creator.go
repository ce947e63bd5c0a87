package migration

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/afero"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (rollback)
-- Created: {{.Timestamp}}

`

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// Creator writes new migration pairs into a directory
type Creator struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewCreator returns a Creator for dir on the OS filesystem
func NewCreator(dir string) *Creator {
	return NewCreatorWithFs(afero.NewOsFs(), dir)
}

// NewCreatorWithFs returns a Creator on any afero filesystem
func NewCreatorWithFs(fsys afero.Fs, dir string) *Creator {
	return &Creator{fs: fsys, dir: dir, now: time.Now}
}

// Create writes <version>_<name>.up.sql and .down.sql. Versions are UTC
// timestamps so files sort in creation order.
func (c *Creator) Create(name, description string) (*MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := c.now().UTC()
	version := now.Format("20060102150405")
	mf := &MigrationFile{
		Version:     version,
		Name:        base,
		Description: description,
		Timestamp:   now.Format(time.RFC3339),
		UpPath:      filepath.Join(c.dir, version+"_"+base+".up.sql"),
		DownPath:    filepath.Join(c.dir, version+"_"+base+".down.sql"),
	}

	if exists, _ := afero.Exists(c.fs, mf.UpPath); exists {
		return nil, fmt.Errorf("migration %s already exists", mf.UpPath)
	}
	if err := c.write(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := c.write(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = c.fs.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func (c *Creator) write(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return afero.WriteFile(c.fs, path, buf.Bytes(), 0o644)
}

// sanitizeName lowercases name and collapses separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// List returns the base names of every migration with an up file, sorted by version
func List(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}
