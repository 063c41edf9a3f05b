package signature

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed default.yaml
var defaultTable []byte

// Load reads a signature table from path. The format is chosen by file
// extension; an empty path selects the embedded default table.
func Load(ctx context.Context, path string) (Table, error) {
	if path == "" {
		return ParseYAML(defaultTable)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(ctx, path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported signature file %s (want .db, .sqlite, .yaml)", path)
	}
}

// LoadSQLite reads the `cms` table of a fingerprint database. Rows are
// returned in insertion order.
func LoadSQLite(ctx context.Context, path string) (Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening signature database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening signature database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT path, match_pattern, cms_name, options FROM cms ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	defer rows.Close()

	var t Table
	for rows.Next() {
		var (
			r       Rule
			options sql.NullString
		)
		if err := rows.Scan(&r.Path, &r.Pattern, &r.CMS, &options); err != nil {
			return nil, fmt.Errorf("scanning signature row %d: %w", len(t)+1, err)
		}
		r.Mode, err = ParseMode(options.String)
		if err != nil {
			return nil, fmt.Errorf("signature row %d: %w", len(t)+1, err)
		}
		t = append(t, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading signatures: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadYAML reads a YAML signature list from disk.
func LoadYAML(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signatures %s: %w", path, err)
	}
	t, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseYAML decodes a list of {path, pattern, cms, mode} entries.
func ParseYAML(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing signatures: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
