package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// catalogMigration is one numbered script from the migrations directory.
// Files are named NNN_label.sql.
type catalogMigration struct {
	version  int
	label    string
	script   string
	checksum string
}

func loadMigrations(fsys fs.FS) ([]catalogMigration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]catalogMigration, 0, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(path.Base(f), ".sql")
		num, label, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected NNN_label.sql", f)
		}
		v, err := strconv.Atoi(num)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("migration %s: bad version %q", f, num)
		}
		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(raw)
		out = append(out, catalogMigration{
			version:  v,
			label:    label,
			script:   string(raw),
			checksum: hex.EncodeToString(sum[:8]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	for i := 1; i < len(out); i++ {
		if out[i].version == out[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d", out[i].version)
		}
	}
	return out, nil
}

// applyMigrations brings the catalog schema up to date. Applied versions are
// recorded with their checksum; an edited script that was already applied is
// reported instead of silently skipped.
func applyMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	pending, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS catalog_migrations (
		version    INTEGER PRIMARY KEY,
		label      TEXT NOT NULL,
		checksum   TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("store: migration ledger: %w", err)
	}

	applied := map[int]string{}
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM catalog_migrations`)
	if err != nil {
		return fmt.Errorf("store: read migration ledger: %w", err)
	}
	for rows.Next() {
		var v int
		var sum string
		if err := rows.Scan(&v, &sum); err != nil {
			rows.Close()
			return fmt.Errorf("store: read migration ledger: %w", err)
		}
		applied[v] = sum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: read migration ledger: %w", err)
	}

	for _, m := range pending {
		if sum, done := applied[m.version]; done {
			if sum != m.checksum {
				return fmt.Errorf("store: migration %d (%s) changed after it was applied", m.version, m.label)
			}
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m catalogMigration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: migration %d: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range sqlStatements(m.script) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migration %d (%s): %w", m.version, m.label, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO catalog_migrations (version, label, checksum) VALUES (?, ?, ?)`,
		m.version, m.label, m.checksum); err != nil {
		return fmt.Errorf("store: migration %d: %w", m.version, err)
	}
	return tx.Commit()
}

// sqlStatements splits a script on top-level semicolons. Semicolons inside
// quoted literals are kept and "--" comments are dropped.
func sqlStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return stmts
}
