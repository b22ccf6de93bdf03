package store

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/authflow/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loginDoc() *schema.FlowDocument {
	return &schema.FlowDocument{
		ID:        "login",
		Variables: map[string]string{"attempts": "0"},
		States: []schema.StateDocument{
			{ID: "form", Kind: schema.StateKindView, View: "casLoginView",
				Transitions: []schema.TransitionDocument{{On: "submit", To: "done"}}},
			{ID: "done", Kind: schema.StateKindEnd, View: "casSuccess"},
		},
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "10-login", Definition: loginDoc(), Source: "flows/login.yaml"}))

	got, err := s.GetDocument(ctx, "10-login")
	require.NoError(t, err)
	assert.Equal(t, "login", got.FlowID)
	assert.Equal(t, "flows/login.yaml", got.Source)
	assert.Equal(t, loginDoc(), got.Definition)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveDocument_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "login", Definition: loginDoc()}))
	first, err := s.GetDocument(ctx, "login")
	require.NoError(t, err)

	updated := loginDoc()
	updated.Start = "form"
	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "login", Definition: updated}))

	got, err := s.GetDocument(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, "form", got.Definition.Start)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	docs, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSaveDocument_Rejects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveDocument(ctx, &Document{Name: "x"})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	err = s.SaveDocument(ctx, &Document{Definition: loginDoc()})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mfa := &schema.FlowDocument{ID: "mfa-otp", States: []schema.StateDocument{{ID: "success", Kind: schema.StateKindEnd}}}
	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "b-login", Definition: loginDoc()}))
	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "a-mfa", Definition: mfa}))
	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "c-login-extra", Definition: &schema.FlowDocument{ID: "login", Multifactor: []string{"mfa-otp"}}}))

	all, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-mfa", all[0].Name)
	assert.Equal(t, "b-login", all[1].Name)
	assert.Equal(t, "c-login-extra", all[2].Name)

	login, err := s.ListDocuments(ctx, DocumentFilter{FlowID: "login"})
	require.NoError(t, err)
	assert.Len(t, login, 2)

	limited, err := s.ListDocuments(ctx, DocumentFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &Document{Name: "login", Definition: loginDoc()}))
	require.NoError(t, s.DeleteDocument(ctx, "login"))

	_, err := s.GetDocument(ctx, "login")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

	err = s.DeleteDocument(ctx, "login")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Vacuum(context.Background()))
}

func TestSQLStatements(t *testing.T) {
	stmts := sqlStatements("-- header\nCREATE TABLE a (x INT);\n\n-- only a comment;\nINSERT INTO a VALUES ('x;y');\nCREATE INDEX i ON a(x);")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "'x;y'")
	assert.Contains(t, stmts[2], "CREATE INDEX i")
}

func TestLoadMigrations(t *testing.T) {
	ms, err := loadMigrations(migrationFS)
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].version)
	assert.Equal(t, "flow_documents", ms[0].label)

	_, err = loadMigrations(fstest.MapFS{"migrations/init.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)

	_, err = loadMigrations(fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/1_b.sql":   {Data: []byte("SELECT 2;")},
	})
	assert.ErrorContains(t, err, "duplicate")
}

func TestApplyMigrations_ChecksumDrift(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	edited := fstest.MapFS{
		"migrations/001_flow_documents.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS other (x INT);")},
	}
	err := applyMigrations(ctx, s.db, edited)
	assert.ErrorContains(t, err, "changed after it was applied")

	extra := fstest.MapFS{}
	raw, err := migrationFS.ReadFile("migrations/001_flow_documents.sql")
	require.NoError(t, err)
	extra["migrations/001_flow_documents.sql"] = &fstest.MapFile{Data: raw}
	extra["migrations/002_notes.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE notes (body TEXT);")}
	require.NoError(t, applyMigrations(ctx, s.db, extra))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}
