package signature

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "keyword", want: Keyword},
		{in: "Keyword", want: Keyword},
		{in: "", wantErr: true},
		{in: "  ", wantErr: true},
		{in: "md5", want: Hash},
		{in: " hash ", want: Hash},
		{in: "regex", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (Table{}).Validate(); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("empty table: got %v, want ErrEmptyTable", err)
	}
	bad := Table{
		{Path: "/a", Pattern: "x", CMS: "A"},
		{Path: "/b", Pattern: "", CMS: "B"},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty pattern")
	}
	noName := Table{{Path: "/a", Pattern: "x", CMS: " "}}
	if err := noName.Validate(); err == nil {
		t.Error("expected error for empty cms name")
	}
}

func TestParseYAMLKeepsOrder(t *testing.T) {
	data := []byte(`
- path: /one
  pattern: first
  cms: Alpha
- path: /two
  pattern: 0cc175b9c0f1b6a831c399e269772661
  cms: Beta
  mode: md5
- path: /three
  pattern: first
  cms: Gamma
  mode: keyword
`)
	table, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("got %d rules, want 3", len(table))
	}
	wantNames := []string{"Alpha", "Beta", "Gamma"}
	for i, r := range table {
		if r.CMS != wantNames[i] {
			t.Errorf("[%d] cms = %q, want %q", i, r.CMS, wantNames[i])
		}
	}
	if table[1].Mode != Hash {
		t.Errorf("rule 2 mode = %v, want md5", table[1].Mode)
	}
	if table[0].Mode != Keyword {
		t.Errorf("rule 1 mode = %v, want keyword (default)", table[0].Mode)
	}
	// Duplicate patterns are allowed; both rules survive.
	if table[0].Pattern != table[2].Pattern {
		t.Error("expected duplicate patterns to be preserved")
	}
}

func TestParseYAMLRejectsUnknownMode(t *testing.T) {
	_, err := ParseYAML([]byte("- {path: /x, pattern: y, cms: Z, mode: regex}\n"))
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadEmbedded(t *testing.T) {
	table, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load embedded: %v", err)
	}
	if len(table) == 0 {
		t.Fatal("embedded table is empty")
	}
	if err := table.Validate(); err != nil {
		t.Errorf("embedded table invalid: %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load(context.Background(), "signatures.txt"); err == nil {
		t.Error("expected error for .txt signature file")
	}
}

func writeSQLite(t *testing.T, rows [][4]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cms_finger.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE cms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT, match_pattern TEXT, cms_name TEXT, options TEXT)`); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO cms (path, match_pattern, cms_name, options) VALUES (?, ?, ?, ?)`,
			r[0], r[1], r[2], r[3]); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestLoadSQLite(t *testing.T) {
	path := writeSQLite(t, [][4]string{
		{"/robots.txt", "Disallow: /wp-admin/", "WordPress", "keyword"},
		{"/favicon.ico", "f276b19aabcb4ae8cda4d22625c6735f", "Joomla", "md5"},
		{"/CHANGELOG.txt", "Drupal", "Drupal", "keyword"},
	})

	table, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Rule{
		{Path: "/robots.txt", Pattern: "Disallow: /wp-admin/", CMS: "WordPress", Mode: Keyword},
		{Path: "/favicon.ico", Pattern: "f276b19aabcb4ae8cda4d22625c6735f", CMS: "Joomla", Mode: Hash},
		{Path: "/CHANGELOG.txt", Pattern: "Drupal", CMS: "Drupal", Mode: Keyword},
	}
	if len(table) != len(want) {
		t.Fatalf("got %d rules, want %d", len(table), len(want))
	}
	for i := range want {
		if table[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, table[i], want[i])
		}
	}
}

func TestLoadSQLiteMissingFile(t *testing.T) {
	_, err := LoadSQLite(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want not-exist error", err)
	}
}

func TestLoadSQLiteBadMode(t *testing.T) {
	path := writeSQLite(t, [][4]string{{"/x", "y", "Z", "sha1"}})
	if _, err := LoadSQLite(context.Background(), path); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("got %v, want ErrUnknownMode", err)
	}
}

func TestLoadSQLiteEmptyMode(t *testing.T) {
	path := writeSQLite(t, [][4]string{
		{"/robots.txt", "Disallow", "WordPress", "keyword"},
		{"/x", "y", "Z", ""},
	})
	if _, err := LoadSQLite(context.Background(), path); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("got %v, want ErrUnknownMode", err)
	}
}

func TestFilterAndNames(t *testing.T) {
	table := Table{
		{Path: "/a", Pattern: "a", CMS: "WordPress"},
		{Path: "/b", Pattern: "b", CMS: "Joomla"},
		{Path: "/c", Pattern: "c", CMS: "WordPress"},
	}
	got := table.Filter([]string{"wordpress"})
	if len(got) != 2 || got[0].Path != "/a" || got[1].Path != "/c" {
		t.Errorf("Filter = %+v", got)
	}
	if len(table.Filter(nil)) != 3 {
		t.Error("Filter(nil) should keep every rule")
	}
	names := table.CMSNames()
	if len(names) != 2 || names[0] != "WordPress" || names[1] != "Joomla" {
		t.Errorf("CMSNames = %v", names)
	}
}
