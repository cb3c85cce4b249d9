package assembler

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript_OrdersByNumericSuffix(t *testing.T) {
	responses := map[string]string{"TOPICO_2": "B", "HOOK": "H", "TOPICO_1": "A"}
	assert.Equal(t, "H\n\nA\n\nB", Script(responses))
}

func TestScript_NumericNotLexicalOrder(t *testing.T) {
	responses := map[string]string{}
	for i, v := range []string{"um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove", "dez", "onze"} {
		responses["TOPIC_"+strconv.Itoa(i+1)] = v
	}
	assert.Equal(t, "um\n\ndois\n\ntrês\n\nquatro\n\ncinco\n\nseis\n\nsete\n\noito\n\nnove\n\ndez\n\nonze", Script(responses))
}

func TestScript_FiltersEmptyAndUnrelated(t *testing.T) {
	responses := map[string]string{
		"CURIOSIDADE_1": "x",
		"CURIOSIDADE_2": "   ",
		"ESTRUTURA":     "estrutura",
		"TOPICO_ABC":    "ignorado",
	}
	assert.Equal(t, "x", Script(responses))
	assert.Empty(t, Script(map[string]string{}))
}

func TestAssemble(t *testing.T) {
	responses := map[string]string{
		"HOOK":        "H",
		"ATO_1":       "A1",
		"ATO_2":       "A2",
		"ESTRUTURA":   "E",
		"PERSONAGENS": "P",
		"TRILHA":      "T",
	}
	files := Assemble(responses)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{FileScript, FileStructure, FileCharacters, FileSoundtrack}, names)

	script, ok := Find(files, FileScript)
	require.True(t, ok)
	assert.Equal(t, "H\n\nA1\n\nA2", script.Content)
	assert.Equal(t, 9, script.Chars)

	_, ok = Find(files, FileTakes)
	assert.False(t, ok)
}

func TestAssemble_Idempotent(t *testing.T) {
	responses := map[string]string{
		"HOOK": "H", "SCENE_3": "c", "SCENE_1": "a", "CENA_2": "b", "takes": "tk",
	}
	first := Assemble(responses)
	second := Assemble(responses)
	assert.Equal(t, first, second)

	takes, ok := Find(first, FileTakes)
	require.True(t, ok)
	assert.Equal(t, "tk", takes.Content)
}
