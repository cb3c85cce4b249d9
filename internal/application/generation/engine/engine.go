// Package engine 解释执行声明式模板：变量替换、上下文窗口、LOOP 展开、进度与续跑
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"script-studio-api/internal/application/generation/rotation"
	"script-studio-api/internal/application/generation/topics"
	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/infrastructure/llm"
	einoobs "script-studio-api/internal/observability/eino"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
	"script-studio-api/pkg/metrics"
	"script-studio-api/pkg/tracer"
)

// DefaultStepDelay 单元之间的礼貌等待
const DefaultStepDelay = 3 * time.Second

// defaultIndexVar 循环未声明 index_var 时的序号变量
const defaultIndexVar = "INDEX"

// Generator 带密钥轮换的生成能力
type Generator interface {
	Generate(ctx context.Context, provider llm.Provider, req rotation.Request) (*rotation.Result, error)
}

// TopicExtractor 主题切分能力
type TopicExtractor interface {
	Extract(text string, expected int) (*topics.Result, error)
}

// Options 引擎配置
type Options struct {
	StepDelay     time.Duration
	ContextWindow int
	// StrictVariables 未定义变量导致步骤失败，默认宽松替换为空串
	StrictVariables bool
	// LoopFailureThreshold 大于 0 时，循环失败次数达到阈值即中止运行
	LoopFailureThreshold int
	LoopProgress         LoopProgress
	Sleeper              rotation.Sleeper
	Observer             Observer
	Now                  func() time.Time
}

// Engine 模板执行引擎，本身无运行期状态，可被多个会话共享
type Engine struct {
	generator Generator
	extractor TopicExtractor
	opts      Options
}

// New 创建引擎
func New(generator Generator, extractor TopicExtractor, opts Options) *Engine {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	if opts.LoopProgress == nil {
		opts.LoopProgress = OutputCountProgress{}
	}
	if opts.Sleeper == nil {
		opts.Sleeper = rotation.TimerSleeper
	}
	if opts.Observer == nil {
		opts.Observer = LogObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{generator: generator, extractor: extractor, opts: opts}
}

// Run 一次执行所需的输入
type Run struct {
	Session  *entity.Session
	Template *entity.Template
	Provider llm.Provider
	Keys     []string
	Model    string
	// Observer 追加的本次运行观察者
	Observer Observer
}

// runState 单次执行的可变状态，仅由执行所在 goroutine 访问
type runState struct {
	Run
	observer Observer
	progress *progress
	units    int
}

// Execute 从 session.CurrentStepIndex 开始执行模板剩余步骤。
//
// ctx 被取消时会话进入 paused 并返回 ctx 的错误；其他未恢复的错误使会话进入 error。
func (e *Engine) Execute(ctx context.Context, run Run) (err error) {
	s := run.Session
	if s == nil || run.Template == nil || run.Provider == nil {
		return apperrors.New(apperrors.CodeInvalidParam, "session, template and provider are required")
	}
	s.Normalize()
	steps := run.Template.Steps
	if s.CurrentStepIndex < 0 || s.CurrentStepIndex > len(steps) {
		return apperrors.Newf(apperrors.CodeInvalidParam, "current step index %d out of range [0,%d]", s.CurrentStepIndex, len(steps))
	}

	observer := e.opts.Observer
	if run.Observer != nil {
		observer = Observers{e.opts.Observer, run.Observer}
	}
	rs := &runState{Run: run, observer: observer, progress: newProgress(len(steps))}

	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)
	ctx, span := tracer.Start(ctx, "generation.execute", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("template.id", run.Template.ID),
		attribute.Int("resume.from", s.CurrentStepIndex),
	))
	started := e.opts.Now()
	defer func() {
		s.Stats.DurationMs += e.opts.Now().Sub(started).Milliseconds()
		s.UpdatedAt = e.opts.Now()
		tracer.Fail(span, err)
		span.End()
	}()

	run.Template.ApplyInputDefaults(s.Variables)
	s.Status = entity.SessionStatusRunning
	s.Error = ""
	if s.CurrentStepIndex > 0 {
		logger.Info(ctx, "resuming session", "from_step", s.CurrentStepIndex, "total_steps", len(steps))
	}

	for i := s.CurrentStepIndex; i < len(steps); i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.halt(ctx, s, ctxErr)
		}

		switch st := steps[i].(type) {
		case *entity.PromptStep:
			_, err = e.runPrompt(ctx, rs, st, st.ID, scope{vars: s.Variables}, i, 0, 1, entity.StepLabel(st))
			if err == nil {
				storeFile(s, resolveName(st.OutputVar, scope{vars: s.Variables}))
			}
		case *entity.LoopStep:
			err = e.runLoop(ctx, rs, st, i)
		default:
			err = apperrors.Newf(apperrors.CodeValidationFailed, "step %q has unsupported type %T", steps[i].StepID(), steps[i])
		}

		if err != nil {
			metrics.GenerationStepTotal.WithLabelValues(string(steps[i].Kind()), "error").Inc()
			return e.halt(ctx, s, err)
		}
		metrics.GenerationStepTotal.WithLabelValues(string(steps[i].Kind()), "success").Inc()

		s.CurrentStepIndex = i + 1
		rs.observer.OnCheckpoint(ctx, s)
	}

	s.Status = entity.SessionStatusCompleted
	return nil
}

// halt 根据错误类型设置会话状态
func (e *Engine) halt(ctx context.Context, s *entity.Session, err error) error {
	if isCancellation(ctx, err) {
		s.Status = entity.SessionStatusPaused
		logger.Info(ctx, "session paused", "step", s.CurrentStepIndex)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	s.Status = entity.SessionStatusError
	s.Error = err.Error()
	return err
}

// storeFile 将顶层步骤的输出归档到生成文件
func storeFile(s *entity.Session, name string) {
	if name == "" {
		return
	}
	s.GeneratedFiles.Store(name, s.Variables[name])
}

// runPrompt 执行一个提示词步骤，返回（清理后的）回复
//
// posStart/posEnd 为该单元在当前顶层步骤内的相对位置 [0,1]，用于进度计算。
func (e *Engine) runPrompt(ctx context.Context, rs *runState, st *entity.PromptStep, stepID string, sc scope, stepIndex int, posStart, posEnd float64, label string) (string, error) {
	s := rs.Session
	if rs.units > 0 {
		if err := e.opts.Sleeper.Sleep(ctx, e.opts.StepDelay); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rs.units++

	ctx = logger.WithContext(ctx, logger.StepIDKey, stepID)
	ctx, span := tracer.Start(ctx, "generation.step", trace.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.Bool("step.uses_context", st.UsesContext),
	))
	defer span.End()

	prompt, missing := Substitute(st.Prompt, sc.lookup)
	if len(missing) > 0 {
		if e.opts.StrictVariables {
			return "", apperrors.Newf(apperrors.CodeValidationFailed, "step %q references undefined variables: %s", stepID, strings.Join(missing, ", "))
		}
		logger.Debug(ctx, "undefined variables substituted with empty string", "variables", missing)
	}

	full := prompt
	if st.UsesContext {
		full = withContext(s.LastMessages(e.opts.ContextWindow), prompt)
	}

	userMsg := entity.NewMessage(entity.RoleUser, prompt, stepID, e.opts.Now())
	s.AppendMessage(userMsg)
	rs.observer.OnMessage(ctx, MessageEvent{
		Message:     userMsg,
		Progress:    rs.progress.at(stepIndex, posStart),
		CurrentStep: label,
	})

	res, err := e.generator.Generate(einoobs.WithWorkflow(ctx, "script_step"), rs.Provider, rotation.Request{
		Prompt: full,
		Keys:   rs.Keys,
		Model:  rs.Model,
	})
	if res != nil {
		s.Stats.ProviderCalls += res.Calls
	}
	if err != nil {
		tracer.Fail(span, err)
		return "", err
	}

	reply := res.Text
	if st.Validation.CleanText {
		reply = CleanText(reply)
	}

	assistantMsg := entity.NewMessage(entity.RoleAssistant, reply, stepID, e.opts.Now())
	s.AppendMessage(assistantMsg)
	rs.observer.OnMessage(ctx, MessageEvent{
		Message:     assistantMsg,
		Progress:    rs.progress.at(stepIndex, posEnd),
		CurrentStep: label,
	})

	if name := resolveName(st.OutputVar, sc); name != "" {
		s.Variables[name] = reply
		s.Responses[name] = reply
	}
	return reply, nil
}

// runLoop 对数组变量逐项执行嵌套步骤；单次迭代失败记录后继续
func (e *Engine) runLoop(ctx context.Context, rs *runState, st *entity.LoopStep, stepIndex int) error {
	s := rs.Session
	items, err := e.resolveArray(ctx, s, st)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		logger.Warn(ctx, "loop array is empty, skipping", "loop_step", st.ID, "array", st.Array)
		return nil
	}

	done := e.opts.LoopProgress.Completed(s, st)
	indexVar := st.IndexVar
	if indexVar == "" {
		indexVar = defaultIndexVar
	}
	label := entity.StepLabel(st)
	n := float64(len(items))
	m := float64(len(st.Steps))
	failures := 0

	for idx, item := range items {
		index := idx + 1
		if done[index] {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		locals := map[string]string{indexVar: strconv.Itoa(index)}
		if st.ItemVar != "" {
			locals[st.ItemVar] = item
		}
		sc := scope{locals: locals, vars: s.Variables}
		iterLabel := fmt.Sprintf("%s (%d/%d)", label, index, len(items))

		var last string
		var iterErr error
		for j, nested := range st.Steps {
			ps, ok := nested.(*entity.PromptStep)
			if !ok {
				iterErr = apperrors.Newf(apperrors.CodeValidationFailed, "loop %q: nested step %q must be a prompt step", st.ID, nested.StepID())
				break
			}
			posStart := (float64(idx) + float64(j)/m) / n
			posEnd := (float64(idx) + float64(j+1)/m) / n
			stepID := fmt.Sprintf("%s_%d", ps.ID, index)
			last, iterErr = e.runPrompt(ctx, rs, ps, stepID, sc, stepIndex, posStart, posEnd, iterLabel)
			if iterErr != nil {
				break
			}
		}

		if iterErr != nil {
			if isCancellation(ctx, iterErr) {
				return iterErr
			}
			failures++
			s.Stats.FailedIterations++
			metrics.LoopIterationFailures.Inc()
			rs.observer.OnIterationFailed(ctx, st.ID, index, iterErr)
			if e.opts.LoopFailureThreshold > 0 && failures >= e.opts.LoopFailureThreshold {
				return apperrors.Wrap(iterErr, apperrors.CodeGenerationFailed,
					fmt.Sprintf("loop %q aborted after %d failed iterations", st.ID, failures))
			}
			continue
		}

		s.AppendLoopOutput(st.ID, last)
		s.MarkLoopIteration(st.ID, index)
		rs.observer.OnCheckpoint(ctx, s)
	}
	return nil
}

// resolveArray 读取数组变量；缺失时按 extract 声明从结构文档中切分
func (e *Engine) resolveArray(ctx context.Context, s *entity.Session, st *entity.LoopStep) ([]string, error) {
	if items, ok := s.Lists[st.Array]; ok {
		return items, nil
	}
	if st.Extract == nil {
		return nil, apperrors.Newf(apperrors.CodeValidationFailed, "loop %q: array variable %q is not defined", st.ID, st.Array)
	}
	if e.extractor == nil {
		return nil, apperrors.Newf(apperrors.CodeInternalError, "loop %q needs topic extraction but no extractor is configured", st.ID)
	}

	source := s.Variables[st.Extract.From]
	count, err := parseCount(s.Variables[st.Extract.Count])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidationFailed,
			fmt.Sprintf("loop %q: variable %q must hold the expected topic count", st.ID, st.Extract.Count))
	}

	res, err := e.extractor.Extract(source, count)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "topics extracted",
		"loop_step", st.ID,
		"pattern", res.Pattern,
		"expected", count,
		"detected", res.Detected,
	)
	s.Lists[st.Array] = res.Blocks
	return res.Blocks, nil
}

var firstNumber = regexp.MustCompile(`\d+`)

func parseCount(v string) (int, error) {
	m := firstNumber.FindString(v)
	if m == "" {
		return 0, fmt.Errorf("no number in %q", v)
	}
	return strconv.Atoi(m)
}

// resolveName 输出变量名中也可以包含占位符，如 TOPICO_{{TOPICO_NUM}}
func resolveName(outputVar string, sc scope) string {
	if outputVar == "" {
		return ""
	}
	name, _ := Substitute(outputVar, sc.lookup)
	return strings.TrimSpace(name)
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}
