package templates

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	apperrors "script-studio-api/pkg/errors"
)

type memRepo struct {
	mu   sync.Mutex
	tpls map[string]*entity.Template
}

func newMemRepo() *memRepo { return &memRepo{tpls: map[string]*entity.Template{}} }

func (m *memRepo) Create(_ context.Context, tpl *entity.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tpls[tpl.ID] = tpl
	return nil
}

func (m *memRepo) Update(ctx context.Context, tpl *entity.Template) error { return m.Create(ctx, tpl) }

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tpls, id)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tpls[id], nil
}

func (m *memRepo) List(_ context.Context, f repository.TemplateFilter, p repository.Pagination) (*repository.PagedResult[*entity.Template], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.Template
	for _, tpl := range m.tpls {
		if matches(tpl, f) {
			items = append(items, tpl)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func customTemplate(id string) *entity.Template {
	return &entity.Template{
		ID:   id,
		Name: "Custom",
		Tags: []string{"custom"},
		Steps: []entity.Step{
			&entity.PromptStep{ID: "a", Prompt: "Fale sobre {{TEMA}}", OutputVar: "HOOK"},
		},
	}
}

func TestLoadBuiltin(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, tpl := range c.All() {
		ids = append(ids, tpl.ID)
		assert.True(t, tpl.BuiltIn)
		assert.NoError(t, tpl.Validate())
	}
	assert.Equal(t, []string{"documentario", "personagem", "universal"}, ids)

	doc, ok := c.Get("documentario")
	require.True(t, ok)
	var loop *entity.LoopStep
	for _, s := range doc.Steps {
		if l, ok := s.(*entity.LoopStep); ok {
			loop = l
		}
	}
	require.NotNil(t, loop)
	assert.Equal(t, "TOPICO_NUM", loop.IndexVar)
	require.NotNil(t, loop.Extract)
	assert.Equal(t, "ESTRUTURA", loop.Extract.From)
	assert.Equal(t, "NUM_TOPICOS", loop.Extract.Count)
	nested := loop.Steps[0].(*entity.PromptStep)
	assert.Equal(t, "TOPICO_{{TOPICO_NUM}}", nested.OutputVar)
	assert.True(t, nested.Validation.CleanText)
}

func TestLoadCatalog_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"tpl/a.yaml": {Data: []byte("id: a\nname: A\nsteps: []\n")},
	}
	_, err := LoadCatalog(fsys, "tpl")
	assert.Error(t, err)

	fsys = fstest.MapFS{
		"tpl/a.yaml": {Data: []byte("id: a\nname: A\nsteps:\n  - id: s\n    prompt: x\n")},
		"tpl/b.yaml": {Data: []byte("id: a\nname: B\nsteps:\n  - id: s\n    prompt: y\n")},
	}
	_, err = LoadCatalog(fsys, "tpl")
	assert.ErrorContains(t, err, "duplicate")
}

func TestService_GetPrefersCustom(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)
	repo := newMemRepo()
	svc := NewService(c, repo)
	ctx := context.Background()

	tpl, err := svc.Get(ctx, "universal")
	require.NoError(t, err)
	assert.True(t, tpl.BuiltIn)

	_, err = svc.Create(ctx, customTemplate("meu"))
	require.NoError(t, err)
	tpl, err = svc.Get(ctx, "meu")
	require.NoError(t, err)
	assert.False(t, tpl.BuiltIn)
	assert.False(t, tpl.CreatedAt.IsZero())

	_, err = svc.Get(ctx, "nada")
	assert.True(t, apperrors.Is(err, apperrors.CodeTemplateNotFound))
}

func TestService_Mutations(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)
	svc := NewService(c, newMemRepo())
	ctx := context.Background()

	_, err = svc.Create(ctx, customTemplate("documentario"))
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	_, err = svc.Create(ctx, &entity.Template{ID: "vazio", Name: "Vazio"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))

	created, err := svc.Create(ctx, customTemplate(""))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(ctx, customTemplate(created.ID))
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	upd := customTemplate("")
	upd.Name = "Renomeado"
	got, err := svc.Update(ctx, created.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)

	_, err = svc.Update(ctx, "personagem", customTemplate(""))
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	_, err = svc.Update(ctx, "nada", customTemplate(""))
	assert.True(t, apperrors.Is(err, apperrors.CodeTemplateNotFound))

	assert.True(t, apperrors.Is(svc.Delete(ctx, "universal"), apperrors.CodeConflict))
	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.True(t, apperrors.Is(svc.Delete(ctx, created.ID), apperrors.CodeTemplateNotFound))
}

func TestService_ListFilters(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)
	svc := NewService(c, newMemRepo())
	ctx := context.Background()
	_, err = svc.Create(ctx, customTemplate("meu"))
	require.NoError(t, err)

	all, err := svc.List(ctx, repository.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	custom, err := svc.List(ctx, repository.TemplateFilter{Tag: "CUSTOM"})
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "meu", custom[0].ID)

	bio, err := svc.List(ctx, repository.TemplateFilter{Category: "biografia"})
	require.NoError(t, err)
	require.Len(t, bio, 1)
	assert.Equal(t, "personagem", bio[0].ID)
}

func TestService_ReadOnlyWithoutRepository(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)
	svc := NewService(c, nil)

	_, err = svc.Create(context.Background(), customTemplate("x"))
	assert.True(t, apperrors.Is(err, apperrors.CodeServiceUnavailable))

	all, err := svc.List(context.Background(), repository.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
