package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// execute runs the CLI with the given args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFacts writes a YAML facts file into a temp dir.
func writeFacts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadFacts(t *testing.T) {
	path := writeFacts(t, `
ubicacion_usuario: interior
calefaccion_nivel: muy_alta
mascotas_presentes: true
temperatura: 18
plantas_descartadas: [Potus, Menta]
`)
	facts, err := LoadFacts(path)
	require.NoError(t, err)
	assert.Equal(t, ir.String("interior"), facts["ubicacion_usuario"])
	assert.Equal(t, ir.Bool(true), facts["mascotas_presentes"])
	assert.Equal(t, ir.Int(18), facts["temperatura"])
	assert.Equal(t, ir.List{ir.String("Potus"), ir.String("Menta")}, facts["plantas_descartadas"])
}

func TestLoadFacts_RejectsNull(t *testing.T) {
	path := writeFacts(t, "ubicacion_usuario: null\n")
	_, err := LoadFacts(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestLoadFacts_RejectsNestedMapping(t *testing.T) {
	path := writeFacts(t, "usuario:\n  nombre: Ana\n")
	_, err := LoadFacts(path)
	require.Error(t, err)
}

func TestLoadFacts_MissingFile(t *testing.T) {
	_, err := LoadFacts(filepath.Join(t.TempDir(), "no_such.yaml"))
	require.Error(t, err)
}

func TestRun_BuiltinRules(t *testing.T) {
	facts := writeFacts(t, "ubicacion_usuario: interior\ncalefaccion_nivel: muy_alta\n")

	out, err := execute(t, "run", "--facts", facts)
	require.NoError(t, err)
	assert.Contains(t, out, "Sansevieria")
	assert.Contains(t, out, "[recommendation]")
	assert.Contains(t, out, "agenda empty")
}

func TestRun_NoMatchStillSucceeds(t *testing.T) {
	facts := writeFacts(t, "ubicacion_usuario: submarino\n")

	out, err := execute(t, "run", "--facts", facts)
	require.NoError(t, err)
	assert.Contains(t, out, "No conclusions reached.")
}

func TestRun_InvalidStrategy(t *testing.T) {
	facts := writeFacts(t, "ubicacion_usuario: interior\n")

	_, err := execute(t, "run", "--facts", facts, "--strategy", "random")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_JSONFormat(t *testing.T) {
	facts := writeFacts(t, "ubicacion_usuario: interior\ncalefaccion_nivel: alta\n")

	out, err := execute(t, "run", "--facts", facts, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["success"])
	assert.NotEmpty(t, data["query_token"])
	assert.Equal(t, "specificity", data["strategy"], "run defaults to the engine's default strategy")
}

func TestRun_RecordsAndTracesSession(t *testing.T) {
	facts := writeFacts(t, "ubicacion_usuario: interior\ncalefaccion_nivel: muy_alta\n")
	db := filepath.Join(t.TempDir(), "sessions.db")

	out, err := execute(t, "run", "--facts", facts, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	token := resp.Data.(map[string]any)["query_token"].(string)
	require.NotEmpty(t, token)

	listing, err := execute(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listing, token)

	trace, err := execute(t, "trace", token, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, trace, "Working memory:")
	assert.Contains(t, trace, "ambiente_seco_extremo")
	assert.Contains(t, trace, "Firings:")
}

func TestTrace_UnknownToken(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sessions.db")
	// Creates an empty store on first open.
	_, err := execute(t, "sessions", "--db", db)
	require.NoError(t, err)

	_, err = execute(t, "trace", "no-such-token", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_BuiltinStyleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
rules: R001: {
	if: [{predicate: "a", op: "exists"}]
	then: [{do: "assert", predicate: "x", value: true}]
}
`), 0o644))

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rule(s), all valid")
}

func TestValidate_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
rules: R001: {
	if: [{predicate: "a", op: "=="}]
	then: [{do: "assert", predicate: "x", value: true}]
}
`), 0o644))

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E003")
}

func TestRules_ListsBuiltin(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "R001_AMBIENTE_INTERIOR_TDF_INVIERNO")
	assert.Contains(t, out, "R008_EXTERIOR_RESISTENTE")
}

func TestRules_DomainFilter(t *testing.T) {
	out, err := execute(t, "rules", "--domain", "condiciones_ambientales_tdf")
	require.NoError(t, err)
	assert.Contains(t, out, "R001_AMBIENTE_INTERIOR_TDF_INVIERNO")
	assert.NotContains(t, out, "R008_EXTERIOR_RESISTENTE")
}
