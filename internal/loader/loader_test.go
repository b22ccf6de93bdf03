package loader

import (
	"testing"

	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDocument(t *testing.T) {
	assert.True(t, IsDocument("login.yaml"))
	assert.True(t, IsDocument("LOGIN.YML"))
	assert.True(t, IsDocument("mfa.json"))
	assert.False(t, IsDocument("README.md"))
	assert.False(t, IsDocument("flows"))
}

func TestLoader_DecodeYAML(t *testing.T) {
	fx := newFixture(t)
	doc, err := fx.loader.Decode([]byte(loginYAML), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, "login", doc.ID)
	assert.Equal(t, "0", doc.Variables["attempts"])
	require.Len(t, doc.States, 4)
	assert.Equal(t, schema.StateKindView, doc.States[1].Kind)
	assert.Equal(t, "casLoginView", doc.States[1].View)
	assert.Equal(t, "proceed", doc.States[0].Actions[0].Params["event"])
	require.Len(t, doc.States[3].Output, 1)
	assert.Equal(t, "result", doc.States[3].Output[0].Name)
}

func TestLoader_DecodeJSON(t *testing.T) {
	fx := newFixture(t)
	doc, err := fx.loader.Decode([]byte(otpJSON), ".json")
	require.NoError(t, err)
	assert.Equal(t, "mfa-otp", doc.ID)
	require.Len(t, doc.States, 2)
	assert.Equal(t, "verified", doc.States[0].Transitions[0].On)
}

func TestLoader_DecodeRejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
		code   string
	}{
		{"empty", "", ".yaml", schema.ErrCodeValidation},
		{"malformed json", "{", ".json", schema.ErrCodeValidation},
		{"unknown field", "id: x\nfoo: bar\n", ".yaml", schema.ErrCodeValidation},
		{"decision without branches", "id: x\nstates:\n  - id: d\n    kind: decision\n    test: \"true\"\n", ".yaml", schema.ErrCodeValidation},
		{"unregistered action", "id: x\nstates:\n  - id: a\n    kind: action\n    actions:\n      - name: nope\n", ".yaml", schema.ErrCodeValidation},
		{"duplicate state", "id: x\nstates:\n  - id: e\n    kind: end\n  - id: e\n    kind: end\n", ".yaml", schema.ErrCodeValidation},
	}
	fx := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.loader.Decode([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, schema.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestLoader_LoadDir(t *testing.T) {
	fx := newFixture(t)
	dir := t.TempDir()
	writeFile(t, dir, "b-login.yaml", loginYAML)
	writeFile(t, dir, "a-otp.json", otpJSON)
	writeFile(t, dir, "notes.txt", "ignored")

	docs, err := fx.loader.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "mfa-otp", docs[0].ID)
	assert.Equal(t, "login", docs[1].ID)
}

func TestLoader_LoadDirReportsFile(t *testing.T) {
	fx := newFixture(t)
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "id: x\nstates: 3\n")

	_, err := fx.loader.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestLoader_LoadDirMissing(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.loader.LoadDir(t.TempDir() + "/missing")
	require.Error(t, err)
}

func TestMarshal_Decodes(t *testing.T) {
	fx := newFixture(t)
	doc, err := fx.loader.Decode([]byte(otpJSON), ".json")
	require.NoError(t, err)

	data, err := Marshal(doc)
	require.NoError(t, err)
	again, err := fx.loader.Decode(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}
