package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"script-studio-api/internal/domain/entity"
)

func TestSubstitute(t *testing.T) {
	sc := scope{
		locals: map[string]string{"TOPICO_NUM": "2"},
		vars:   map[string]string{"TEMA": "Nokia", "TOPICO_NUM": "9"},
	}

	out, missing := Substitute("{{TEMA}} / {{ TOPICO_NUM }} / {{tema}} / {{X}}{{X}}", sc.lookup)
	assert.Equal(t, "Nokia / 2 / Nokia / ", out)
	assert.Equal(t, []string{"X"}, missing)

	out, missing = Substitute("sem variáveis", sc.lookup)
	assert.Equal(t, "sem variáveis", out)
	assert.Empty(t, missing)
}

func TestCleanText(t *testing.T) {
	in := "# Título\n\n---\n\n> citação\n\n- item **forte**\n* outro _x_\n\n\n\nVeja [o site](http://x) e ![img](a.png)   "
	assert.Equal(t, "Título\n\ncitação\n\nitem forte\noutro _x_\n\nVeja o site e img", CleanText(in))
}

func TestProgress_MonotonicAndCapped(t *testing.T) {
	p := newProgress(3)
	assert.Equal(t, 0, p.at(0, 0))
	assert.Equal(t, 33, p.at(0, 1))
	assert.Equal(t, 33, p.at(0, 0.5))
	assert.Equal(t, 99, p.at(2, 1))
	assert.Equal(t, 99, p.at(1, 0))

	empty := newProgress(0)
	assert.Equal(t, 0, empty.at(0, 1))
}

func TestWithContext(t *testing.T) {
	history := []*entity.Message{
		{Role: entity.RoleUser, Content: "oi"},
		{Role: entity.RoleAssistant, Content: "olá"},
	}
	assert.Equal(t, "user: oi\n\nassistant: olá\n\nnovo", withContext(history, "novo"))
	assert.Equal(t, "novo", withContext(nil, "novo"))
}

func TestLoopProgressFor(t *testing.T) {
	assert.IsType(t, MarkerProgress{}, LoopProgressFor("markers"))
	assert.IsType(t, OutputCountProgress{}, LoopProgressFor("outputs"))
	assert.IsType(t, OutputCountProgress{}, LoopProgressFor(""))
}
