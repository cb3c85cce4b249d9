package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/application/generation/assembler"
	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/interfaces/http/sse"
)

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]string{"tema=Roma antiga", " idioma =pt=BR"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tema": "Roma antiga", "idioma": "pt=BR"}, inputs)

	_, err = parseInputs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseInputs([]string{"=x"})
	assert.Error(t, err)
}

func TestConsumeEvents(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"type":"message","progress":40,"current_step":"titulo"}`,
		``,
		`data: {broken`,
		``,
		`data: {"type":"complete","session_id":"s1","progress":100,"files":[{"name":"roteiro","content":"abc","chars":3}]}`,
		``,
		``,
	}, "\n")

	var out bytes.Buffer
	dec := sse.NewDecoder(strings.NewReader(stream))
	final, err := consumeEvents(dec, &out)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, session.EventComplete, final.Type)
	assert.Len(t, final.Files, 1)
	assert.Equal(t, 1, dec.Skipped())
	assert.Contains(t, out.String(), "titulo")
	assert.Contains(t, out.String(), "completed session s1")
}

func TestConsumeEventsEarlyEOF(t *testing.T) {
	var out bytes.Buffer
	final, err := consumeEvents(sse.NewDecoder(strings.NewReader("data: {\"type\":\"message\"}\n\n")), &out)
	require.NoError(t, err)
	assert.Nil(t, final)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	ev := &session.Event{Files: []assembler.File{
		{Name: "roteiro", Content: "texto completo", Chars: 14},
		{Name: "../titulo", Content: "Titulo", Chars: 6},
	}}
	require.NoError(t, writeFiles(dir, ev, &out))

	raw, err := os.ReadFile(filepath.Join(dir, "roteiro.txt"))
	require.NoError(t, err)
	assert.Equal(t, "texto completo", string(raw))
	_, err = os.Stat(filepath.Join(dir, "titulo.txt"))
	assert.NoError(t, err)
}
