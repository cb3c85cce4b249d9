package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/domain/entity"
)

func sampleTemplate() *entity.Template {
	return &entity.Template{
		ID:       "custom-doc",
		Name:     "Custom",
		Category: "documentario",
		Tags:     []string{"historia", "curto"},
		Inputs:   []entity.TemplateInput{{Name: "TITULO", Required: true}},
		Steps: []entity.Step{
			&entity.PromptStep{ID: "estrutura", Prompt: "Estrutura de {{TITULO}}", OutputVar: "ESTRUTURA"},
			&entity.LoopStep{
				ID:       "topicos",
				Array:    "TOPICOS",
				ItemVar:  "TOPICO",
				IndexVar: "N",
				Extract:  &entity.LoopExtract{From: "ESTRUTURA", Count: "NUM"},
				Steps: []entity.Step{
					&entity.PromptStep{ID: "topico", Prompt: "{{TOPICO}}", OutputVar: "TOPICO_{{N}}", Validation: entity.Validation{CleanText: true}},
				},
			},
		},
	}
}

func TestTemplateRowRoundTrip(t *testing.T) {
	row, err := newTemplateRow(sampleTemplate())
	require.NoError(t, err)
	assert.Equal(t, "script_templates", row.TableName())
	assert.Equal(t, []string{"historia", "curto"}, []string(row.Tags))

	got, err := row.toEntity()
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)

	loop, ok := got.Steps[1].(*entity.LoopStep)
	require.True(t, ok)
	assert.Equal(t, "ESTRUTURA", loop.Extract.From)
	nested := loop.Steps[0].(*entity.PromptStep)
	assert.True(t, nested.Validation.CleanText)
	assert.Equal(t, "TOPICO_{{N}}", nested.OutputVar)
	assert.True(t, got.Inputs[0].Required)
}

func TestTemplateRowRejectsCorruptSteps(t *testing.T) {
	row := &templateRow{ID: "broken", Steps: jsonb(`{"not":"a list"}`)}
	_, err := row.toEntity()
	assert.ErrorContains(t, err, "broken")
}

func TestSessionRowKeepsState(t *testing.T) {
	s := entity.NewSession("custom-doc", map[string]string{"TITULO": "Roma"})
	s.ClientID = "client-1"
	s.CurrentStepIndex = 2
	s.Status = entity.SessionStatusPaused
	s.Responses["HOOK"] = "abertura"
	s.MarkLoopIteration("topicos", 1)

	row, err := newSessionRow(s)
	require.NoError(t, err)
	assert.Equal(t, "paused", row.Status)
	assert.Equal(t, 2, row.CurrentStepIndex)

	got, err := row.toEntity()
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "Roma", got.Variables["TITULO"])
	assert.Equal(t, "abertura", got.Responses["HOOK"])
	assert.Equal(t, []int{1}, got.LoopMarkers["topicos"])
	assert.NotNil(t, got.Lists)
}

func TestJSONBScan(t *testing.T) {
	var j jsonb
	require.NoError(t, j.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, string(j))
	require.NoError(t, j.Scan(`[]`))
	assert.Equal(t, `[]`, string(j))
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)
	assert.Error(t, j.Scan(42))

	v, err := jsonb(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
