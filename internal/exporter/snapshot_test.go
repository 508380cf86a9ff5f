package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/docbase"
)

func TestDatumToNativeConvertsEveryKind(t *testing.T) {
	obj := docbase.NewObject(map[string]docbase.Datum{
		"name": docbase.NewString("ann"),
		"age":  docbase.NewInt(30),
		"tags": docbase.NewArray([]docbase.Datum{docbase.NewString("a"), docbase.NewString("b")}),
		"bio":  docbase.Null(),
		"ok":   docbase.NewBool(true),
		"pi":   docbase.NewFloat(1.5),
		"raw":  docbase.NewBinary([]byte("hi")),
	})
	native, ok := datumToNative(obj).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ann", native["name"])
	assert.EqualValues(t, 30, native["age"])
	assert.Nil(t, native["bio"])
	assert.Equal(t, []any{"a", "b"}, native["tags"])
	assert.Equal(t, true, native["ok"])
	assert.Equal(t, 1.5, native["pi"])
	assert.Equal(t, "aGk=", native["raw"])
}

func TestWriteNDJSONProducesOneLinePerDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ndjson")
	docs := []docbase.Datum{
		docbase.NewObject(map[string]docbase.Datum{"id": docbase.NewString("1")}),
		docbase.NewObject(map[string]docbase.Datum{"id": docbase.NewString("2")}),
	}
	require.NoError(t, writeNDJSON(path, docs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0]["id"])
	assert.Equal(t, "2", lines[1]["id"])
}
