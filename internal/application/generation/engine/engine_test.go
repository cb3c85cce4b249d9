package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/application/generation/rotation"
	"script-studio-api/internal/application/generation/topics"
	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/infrastructure/llm"
	apperrors "script-studio-api/pkg/errors"
)

// scriptedGenerator 根据提示词内容返回预设回复
type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, _ llm.Provider, req rotation.Request) (*rotation.Result, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()
	text, err := g.reply(req.Prompt)
	if err != nil {
		return &rotation.Result{Calls: 1}, err
	}
	return &rotation.Result{Text: text, Calls: 1}, nil
}

type recordingObserver struct {
	NopObserver
	events      []MessageEvent
	failures    []int
	checkpoints int
}

func (o *recordingObserver) OnMessage(_ context.Context, ev MessageEvent) {
	o.events = append(o.events, ev)
}

func (o *recordingObserver) OnIterationFailed(_ context.Context, _ string, index int, _ error) {
	o.failures = append(o.failures, index)
}

func (o *recordingObserver) OnCheckpoint(context.Context, *entity.Session) {
	o.checkpoints++
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

const structureReply = `TÓPICO 1: A origem
Como tudo começou.

TÓPICO 2: O auge
O período de maior sucesso.

TÓPICO 3: O declínio
O que veio depois.`

func documentaryTemplate() *entity.Template {
	return &entity.Template{
		ID:   "doc",
		Name: "Documentário",
		Inputs: []entity.TemplateInput{
			{Name: "TEMA", Required: true},
			{Name: "NUM_TOPICOS", Default: "3"},
		},
		Steps: []entity.Step{
			&entity.PromptStep{ID: "estrutura", Name: "Estrutura", Prompt: "Crie a estrutura sobre {{TEMA}} com {{NUM_TOPICOS}} tópicos", OutputVar: "ESTRUTURA"},
			&entity.PromptStep{ID: "hook", Name: "Hook", Prompt: "Escreva o hook", UsesContext: true, OutputVar: "HOOK"},
			&entity.LoopStep{
				ID:       "topicos",
				Name:     "Tópicos",
				Array:    "TOPICOS",
				ItemVar:  "TOPICO",
				IndexVar: "TOPICO_NUM",
				Extract:  &entity.LoopExtract{From: "ESTRUTURA", Count: "NUM_TOPICOS"},
				Steps: []entity.Step{
					&entity.PromptStep{ID: "topico", Prompt: "Desenvolva o tópico {{TOPICO_NUM}}: {{TOPICO}}", OutputVar: "TOPICO_{{TOPICO_NUM}}"},
				},
			},
		},
	}
}

func documentaryReplies(prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Crie a estrutura"):
		return structureReply, nil
	case strings.Contains(prompt, "Escreva o hook"):
		return "Você sabia?", nil
	case strings.Contains(prompt, "Desenvolva o tópico"):
		i := strings.Index(prompt, "Desenvolva o tópico ")
		return "Texto do tópico " + prompt[i+len("Desenvolva o tópico "):i+len("Desenvolva o tópico ")+1], nil
	}
	return "", errors.New("unexpected prompt")
}

func newTestEngine(gen Generator, obs Observer, sleeper rotation.Sleeper, opts Options) *Engine {
	opts.Observer = obs
	opts.Sleeper = sleeper
	if opts.StepDelay == 0 {
		opts.StepDelay = DefaultStepDelay
	}
	return New(gen, topics.NewExtractor(0), opts)
}

func newRun(s *entity.Session, tpl *entity.Template) Run {
	return Run{Session: s, Template: tpl, Provider: llm.NewMockProvider("mock"), Keys: []string{"k1"}, Model: "m"}
}

func TestExecute_DocumentaryFlow(t *testing.T) {
	gen := &scriptedGenerator{reply: documentaryReplies}
	obs := &recordingObserver{}
	sleeper := &recordingSleeper{}
	e := newTestEngine(gen, obs, sleeper, Options{})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))

	assert.Equal(t, entity.SessionStatusCompleted, s.Status)
	assert.Equal(t, 3, s.CurrentStepIndex)
	assert.Equal(t, "3", s.Variables["NUM_TOPICOS"])
	assert.Equal(t, structureReply, s.GeneratedFiles.Structure)
	assert.Equal(t, "Você sabia?", s.GeneratedFiles.Hook)
	assert.Equal(t, []string{"Texto do tópico 1", "Texto do tópico 2", "Texto do tópico 3"}, s.GeneratedFiles.Topics)
	assert.Equal(t, "Texto do tópico 2", s.Responses["TOPICO_2"])
	assert.Len(t, s.Lists["TOPICOS"], 3)

	// 5 个单元，每个单元一问一答
	require.Len(t, s.Messages, 10)
	assert.Equal(t, 5, s.Stats.UserMessages)
	assert.Equal(t, 5, s.Stats.AssistantMessages)
	assert.Equal(t, 5, s.Stats.ProviderCalls)
	assert.Equal(t, "topico_2", s.Messages[6].StepID)
	assert.Equal(t, "Crie a estrutura sobre Nokia com 3 tópicos", s.Messages[0].Content)

	// 第一个单元之前不等待
	assert.Equal(t, []time.Duration{DefaultStepDelay, DefaultStepDelay, DefaultStepDelay, DefaultStepDelay}, sleeper.delays)

	require.Len(t, obs.events, 10)
	last := -1
	for _, ev := range obs.events {
		assert.GreaterOrEqual(t, ev.Progress, last)
		assert.LessOrEqual(t, ev.Progress, 99)
		last = ev.Progress
	}
	assert.Equal(t, "Tópicos (2/3)", obs.events[6].CurrentStep)
	// 3 次迭代 + 3 个顶层步骤
	assert.Equal(t, 6, obs.checkpoints)
}

func TestExecute_ContextWindowPrefixesPrompt(t *testing.T) {
	gen := &scriptedGenerator{reply: documentaryReplies}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})

	tpl := documentaryTemplate()
	tpl.Steps = tpl.Steps[:2]
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})
	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))

	require.Len(t, gen.prompts, 2)
	want := "user: Crie a estrutura sobre Nokia com 3 tópicos\n\nassistant: " + structureReply + "\n\nEscreva o hook"
	assert.Equal(t, want, gen.prompts[1])
	// 消息中只保存解析后的提示词本身
	assert.Equal(t, "Escreva o hook", s.Messages[2].Content)
}

func TestExecute_FailedIterationIsSkipped(t *testing.T) {
	gen := &scriptedGenerator{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Desenvolva o tópico 2") {
			return "", apperrors.New(apperrors.CodeLLMProviderError, "boom")
		}
		return documentaryReplies(prompt)
	}}
	obs := &recordingObserver{}
	e := newTestEngine(gen, obs, &recordingSleeper{}, Options{})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})
	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))

	assert.Equal(t, entity.SessionStatusCompleted, s.Status)
	assert.Equal(t, []string{"Texto do tópico 1", "Texto do tópico 3"}, s.GeneratedFiles.Topics)
	assert.Equal(t, 1, s.Stats.FailedIterations)
	assert.Equal(t, []int{2}, obs.failures)
	assert.Equal(t, []int{1, 3}, s.LoopMarkers["topicos"])
}

func TestExecute_LoopFailureThresholdAborts(t *testing.T) {
	gen := &scriptedGenerator{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Desenvolva o tópico") {
			return "", apperrors.New(apperrors.CodeLLMProviderError, "boom")
		}
		return documentaryReplies(prompt)
	}}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{LoopFailureThreshold: 2})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})
	err := e.Execute(context.Background(), newRun(s, tpl))

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeGenerationFailed))
	assert.Equal(t, entity.SessionStatusError, s.Status)
	assert.Equal(t, 2, s.CurrentStepIndex)
	assert.NotEmpty(t, s.Error)
}

func TestExecute_ResumeSkipsCompletedWork(t *testing.T) {
	gen := &scriptedGenerator{reply: documentaryReplies}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia", "NUM_TOPICOS": "3"})
	s.CurrentStepIndex = 2
	s.Status = entity.SessionStatusPaused
	s.Variables["ESTRUTURA"] = structureReply
	s.Lists["TOPICOS"] = []string{"a", "b", "c"}
	s.AppendLoopOutput("topicos", "Texto do tópico 1")

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))

	require.Len(t, gen.prompts, 2)
	assert.Equal(t, "Desenvolva o tópico 2: b", gen.prompts[0])
	assert.Equal(t, "Desenvolva o tópico 3: c", gen.prompts[1])
	assert.Len(t, s.GeneratedFiles.Topics, 3)
	assert.Equal(t, entity.SessionStatusCompleted, s.Status)
}

func TestExecute_ResumeWithMarkers(t *testing.T) {
	gen := &scriptedGenerator{reply: documentaryReplies}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{LoopProgress: MarkerProgress{}})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})
	s.CurrentStepIndex = 2
	s.Lists["TOPICOS"] = []string{"a", "b", "c"}
	s.AppendLoopOutput("topicos", "Texto do tópico 1")
	s.AppendLoopOutput("topicos", "Texto do tópico 3")
	s.LoopMarkers = map[string][]int{"topicos": {1, 3}}

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "Desenvolva o tópico 2: b", gen.prompts[0])
}

func TestExecute_EachLoopCountsItsOwnOutputs(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.LoopStep{ID: "a", Array: "ITENS", ItemVar: "ITEM", Steps: []entity.Step{
			&entity.PromptStep{ID: "pa", Prompt: "A {{ITEM}}"},
		}},
		&entity.LoopStep{ID: "b", Array: "ITENS", ItemVar: "ITEM", Steps: []entity.Step{
			&entity.PromptStep{ID: "pb", Prompt: "B {{ITEM}}"},
		}},
	}}
	gen := &scriptedGenerator{reply: func(p string) (string, error) { return p, nil }}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
	s := entity.NewSession("t", nil)
	s.Lists["ITENS"] = []string{"1", "2"}

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))
	assert.Equal(t, []string{"A 1", "A 2", "B 1", "B 2"}, gen.prompts)
	assert.Equal(t, []string{"A 1", "A 2"}, s.LoopOutputs["a"])
	assert.Equal(t, []string{"B 1", "B 2"}, s.LoopOutputs["b"])
	assert.Len(t, s.GeneratedFiles.Topics, 4)
}

func TestExecute_ResumeSecondLoopKeepsFirstLoopDone(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.LoopStep{ID: "a", Array: "ITENS", ItemVar: "ITEM", Steps: []entity.Step{
			&entity.PromptStep{ID: "pa", Prompt: "A {{ITEM}}"},
		}},
		&entity.LoopStep{ID: "b", Array: "ITENS", ItemVar: "ITEM", Steps: []entity.Step{
			&entity.PromptStep{ID: "pb", Prompt: "B {{ITEM}}"},
		}},
	}}
	gen := &scriptedGenerator{reply: func(p string) (string, error) { return p, nil }}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
	s := entity.NewSession("t", nil)
	s.Status = entity.SessionStatusPaused
	s.CurrentStepIndex = 1
	s.Lists["ITENS"] = []string{"1", "2", "3"}
	for _, out := range []string{"A 1", "A 2", "A 3"} {
		s.AppendLoopOutput("a", out)
	}
	s.AppendLoopOutput("b", "B 1")

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))
	assert.Equal(t, []string{"B 2", "B 3"}, gen.prompts)
}

func TestExecute_StrictVariables(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.PromptStep{ID: "a", Prompt: "Fale sobre {{TEMA}} e {{ESTILO}}", OutputVar: "A"},
	}}

	t.Run("lenient", func(t *testing.T) {
		gen := &scriptedGenerator{reply: func(string) (string, error) { return "ok", nil }}
		e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
		s := entity.NewSession("t", map[string]string{"TEMA": "gatos"})

		require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))
		assert.Equal(t, []string{"Fale sobre gatos e "}, gen.prompts)
	})

	t.Run("strict", func(t *testing.T) {
		gen := &scriptedGenerator{reply: func(string) (string, error) { return "ok", nil }}
		e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{StrictVariables: true})
		s := entity.NewSession("t", map[string]string{"TEMA": "gatos"})

		err := e.Execute(context.Background(), newRun(s, tpl))
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
		assert.Contains(t, err.Error(), "ESTILO")
		assert.Empty(t, gen.prompts)
		assert.Equal(t, entity.SessionStatusError, s.Status)
	})
}

func TestExecute_CleanTextValidation(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.PromptStep{ID: "hook", Prompt: "hook", OutputVar: "HOOK", Validation: entity.Validation{CleanText: true}},
	}}
	gen := &scriptedGenerator{reply: func(string) (string, error) { return "## Título\n\n**Você** sabia?", nil }}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
	s := entity.NewSession("t", nil)

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))
	assert.Equal(t, "Título\n\nVocê sabia?", s.GeneratedFiles.Hook)
}

func TestExecute_CancellationPauses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &scriptedGenerator{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Escreva o hook") {
			cancel()
			return "", context.Canceled
		}
		return documentaryReplies(prompt)
	}}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})

	tpl := documentaryTemplate()
	s := entity.NewSession(tpl.ID, map[string]string{"TEMA": "Nokia"})
	err := e.Execute(ctx, newRun(s, tpl))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.SessionStatusPaused, s.Status)
	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.Empty(t, s.Error)
}

func TestExecute_MissingArrayWithoutExtract(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.LoopStep{ID: "l", Array: "ITENS", Steps: []entity.Step{&entity.PromptStep{ID: "p", Prompt: "x"}}},
	}}
	gen := &scriptedGenerator{reply: func(string) (string, error) { return "ok", nil }}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
	s := entity.NewSession("t", nil)

	err := e.Execute(context.Background(), newRun(s, tpl))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
	assert.Equal(t, entity.SessionStatusError, s.Status)
}

func TestExecute_DefaultIndexVar(t *testing.T) {
	tpl := &entity.Template{ID: "t", Name: "t", Steps: []entity.Step{
		&entity.LoopStep{ID: "l", Array: "ITENS", ItemVar: "ITEM", Steps: []entity.Step{
			&entity.PromptStep{ID: "p", Prompt: "{{INDEX}}={{ITEM}}"},
		}},
	}}
	gen := &scriptedGenerator{reply: func(p string) (string, error) { return p, nil }}
	e := newTestEngine(gen, &recordingObserver{}, &recordingSleeper{}, Options{})
	s := entity.NewSession("t", nil)
	s.Lists["ITENS"] = []string{"a", "b"}

	require.NoError(t, e.Execute(context.Background(), newRun(s, tpl)))
	assert.Equal(t, []string{"1=a", "2=b"}, gen.prompts)
	assert.Equal(t, []string{"1=a", "2=b"}, s.GeneratedFiles.Topics)
}
