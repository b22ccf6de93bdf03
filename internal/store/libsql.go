package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/authflow/pkg/schema"
)

// LibSQLStore is the Store backed by an embedded libSQL database.
type LibSQLStore struct {
	db *sql.DB
}

// Connection pragmas. journal_mode answers with a row, so they are read
// rather than executed.
var libsqlPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// NewLibSQLStore opens the database at dsn, a file URI such as
// "file:/var/lib/authflow/flows.db". Call Migrate before first use.
func NewLibSQLStore(dsn string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	// single writer connection
	db.SetMaxOpenConns(1)
	for _, p := range libsqlPragmas {
		var ignored string
		_ = db.QueryRow(p).Scan(&ignored)
	}
	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.db, migrationFS)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

const documentColumns = `name, flow_id, definition, source, created_at, updated_at`

// SaveDocument inserts doc or replaces the document stored under doc.Name.
// CreatedAt survives replacement.
func (s *LibSQLStore) SaveDocument(ctx context.Context, doc *Document) error {
	if doc == nil || doc.Definition == nil {
		return schema.NewError(schema.ErrCodeValidation, "document has no definition")
	}
	if doc.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "document name is empty")
	}
	def, err := json.Marshal(doc.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	doc.FlowID = doc.Definition.ID
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flow_documents (name, flow_id, definition, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   flow_id=excluded.flow_id, definition=excluded.definition,
		   source=excluded.source, updated_at=excluded.updated_at`,
		doc.Name, doc.FlowID, string(def), nullStr(doc.Source), timeOrNow(doc.CreatedAt), now,
	)
	if err != nil {
		return storeError("save", doc.Name, err)
	}
	return nil
}

// GetDocument returns the document stored under name.
func (s *LibSQLStore) GetDocument(ctx context.Context, name string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM flow_documents WHERE name = ?`, name)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, documentNotFound(name)
	}
	return doc, err
}

// ListDocuments returns documents ordered by name.
func (s *LibSQLStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	var q strings.Builder
	var args []any
	q.WriteString(`SELECT ` + documentColumns + ` FROM flow_documents`)
	if filter.FlowID != "" {
		q.WriteString(` WHERE flow_id = ?`)
		args = append(args, filter.FlowID)
	}
	q.WriteString(` ORDER BY name`)
	if filter.Limit > 0 {
		q.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, storeError("list", "", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document stored under name.
func (s *LibSQLStore) DeleteDocument(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flow_documents WHERE name = ?`, name)
	if err != nil {
		return storeError("delete", name, err)
	}
	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return storeError("delete", name, err)
	case n == 0:
		return documentNotFound(name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	doc := &Document{}
	var defJSON string
	var source sql.NullString
	if err := row.Scan(&doc.Name, &doc.FlowID, &defJSON, &source, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Source = source.String
	doc.Definition = &schema.FlowDocument{}
	if err := json.Unmarshal([]byte(defJSON), doc.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition of %q: %w", doc.Name, err)
	}
	return doc, nil
}

func documentNotFound(name string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "document %q not found", name)
}

func storeError(op, name string, err error) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s document %q", op, name).WithCause(err)
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
