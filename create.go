package migscript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// CreateOptions controls CreateMigration.
type CreateOptions struct {
	Name string
	Dir  string
	// Now defaults to time.Now; the id prefix is its UTC yyyymmddHHMMSS form.
	Now func() time.Time
}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `# %s
description: %q
up:
  - kind: create_table
    table: example
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: name, type: string, nullable: true}
down:
  - kind: drop_table
    table: example
`

// CreateMigration writes a new timestamped migration file into opts.Dir and
// returns its path. It refuses to overwrite an existing file.
func CreateMigration(opts CreateOptions) (string, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return "", errors.New("create migration: dir is required")
	}
	slug := strings.Trim(nonIdentChars.ReplaceAllString(strings.ToLower(opts.Name), "_"), "_")
	if slug == "" {
		slug = "migration"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	id := now().UTC().Format("20060102150405") + "_" + slug

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, id+".yaml")
	// #nosec G304 -- path is built from the configured migration dir and a sanitized name
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(f, migrationTemplate, id, strings.TrimSpace(opts.Name)); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
