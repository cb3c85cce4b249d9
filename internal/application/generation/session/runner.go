package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"script-studio-api/internal/application/generation/assembler"
	"script-studio-api/internal/application/generation/engine"
	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/infrastructure/llm"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
	"script-studio-api/pkg/metrics"
)

const (
	// DefaultTimeout 单次运行的墙钟上限
	DefaultTimeout = 15 * time.Minute
	defaultBuffer  = 32
)

// TemplateSource 按 ID 查找模板，不存在时返回 ErrTemplateNotFound
type TemplateSource interface {
	Get(ctx context.Context, id string) (*entity.Template, error)
}

// ProviderSource 提供商及其默认模型、密钥
type ProviderSource interface {
	Get(name string) (llm.Provider, error)
	DefaultModel(name string) string
	DefaultKeys(name string) []string
}

// Stores 可选的持久化依赖，nil 字段表示不启用
type Stores struct {
	Checkpoints repository.CheckpointStore
	Sessions    repository.SessionRepository
	Preferences repository.PreferenceRepository
	Lock        repository.SessionLock
}

// Options 运行配置
type Options struct {
	Timeout time.Duration
	// Checkpoint 每个工作单元完成后写入快照
	Checkpoint bool
	Buffer     int
}

// Request 开始或续跑一次生成
type Request struct {
	TemplateID string            `json:"template_id,omitempty"`
	Template   *entity.Template  `json:"template,omitempty"`
	Inputs     map[string]string `json:"inputs,omitempty"`
	// Session 客户端保存的会话快照，用于续跑
	Session *entity.Session `json:"session,omitempty"`
	// SessionID 从服务端检查点续跑
	SessionID string   `json:"session_id,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	APIKeys   []string `json:"api_keys,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
}

// Runner 流式会话
type Runner struct {
	engine    *engine.Engine
	templates TemplateSource
	providers ProviderSource
	stores    Stores
	opts      Options
}

// NewRunner 创建流式会话运行器
func NewRunner(eng *engine.Engine, templates TemplateSource, providers ProviderSource, stores Stores, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Runner{engine: eng, templates: templates, providers: providers, stores: stores, opts: opts}
}

// Stream 一次运行的事件流
type Stream struct {
	SessionID string
	events    <-chan Event
	done      chan struct{}
	session   *entity.Session
}

// Events 事件通道，终止事件之后关闭
func (s *Stream) Events() <-chan Event { return s.events }

// Done 运行 goroutine 退出后关闭
func (s *Stream) Done() <-chan struct{} { return s.done }

// Session 最终会话状态，只能在 Done 关闭后读取
func (s *Stream) Session() *entity.Session { return s.session }

type prepared struct {
	session  *entity.Session
	template *entity.Template
	provider llm.Provider
	keys     []string
	model    string
}

// Start 校验请求并在后台开始执行，返回事件流。
//
// 请求本身的错误（模板不存在、缺少输入、会话正在运行等）同步返回，不产生事件。
func (r *Runner) Start(ctx context.Context, req Request) (*Stream, error) {
	p, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	release := func() {}
	if r.stores.Lock != nil {
		rel, ok, err := r.stores.Lock.Acquire(ctx, p.session.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeSessionBusy, "session %s already has an active run", p.session.ID)
		}
		release = rel
	}
	r.rememberTemplate(ctx, req.ClientID, p.template.ID)

	em := newEmitter(r.opts.Buffer, ctx.Done())
	st := &Stream{SessionID: p.session.ID, events: em.ch, done: make(chan struct{}), session: p.session}

	runCtx, cancel := context.WithCancel(ctx)
	runCtx = logger.WithContext(runCtx, logger.SessionIDKey, p.session.ID)
	timer := time.AfterFunc(r.opts.Timeout, func() {
		err := apperrors.Newf(apperrors.CodeTimeout, "generation exceeded the %s wall-clock limit", r.opts.Timeout)
		logger.Warn(runCtx, "session timed out", "timeout", r.opts.Timeout.String())
		em.finish(&Event{Type: EventError, SessionID: p.session.ID, Error: err.Error(), Code: err.Code})
		cancel()
	})

	metrics.ActiveSessions.Inc()
	go func() {
		defer close(st.done)
		defer metrics.ActiveSessions.Dec()
		defer release()
		defer cancel()
		defer timer.Stop()

		// Stop 返回 false 说明超时回调已触发，由它发出终止事件
		r.execute(runCtx, p, em, func() bool { return !timer.Stop() })
	}()
	return st, nil
}

// Run 阻塞执行直到结束，供后台任务使用
func (r *Runner) Run(ctx context.Context, req Request) (*entity.Session, error) {
	st, err := r.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	var last Event
	for ev := range st.Events() {
		last = ev
	}
	select {
	case <-st.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s := st.Session()
	switch {
	case last.Type == EventComplete:
		return s, nil
	case last.Type == EventError:
		return s, apperrors.New(last.Code, last.Error)
	case ctx.Err() != nil:
		return s, ctx.Err()
	default:
		return s, apperrors.New(apperrors.CodeCanceled, "generation stopped before completion")
	}
}

// execute 运行引擎并结算终态；expired 在引擎返回后调用一次，报告超时是否已经生效
func (r *Runner) execute(ctx context.Context, p *prepared, em *emitter, expired func() bool) {
	s := p.session
	sink := &streamObserver{runner: r, emitter: em, sessionID: s.ID}
	started := time.Now()

	err := r.engine.Execute(ctx, engine.Run{
		Session:  s,
		Template: p.template,
		Provider: p.provider,
		Keys:     p.keys,
		Model:    p.model,
		Observer: sink,
	})

	timedOut := expired()
	persistCtx := context.WithoutCancel(ctx)
	tplLabel := p.template.ID
	switch {
	case timedOut:
		s.Status = entity.SessionStatusError
		s.Error = apperrors.Newf(apperrors.CodeTimeout, "generation exceeded the %s wall-clock limit", r.opts.Timeout).Error()
		r.persist(persistCtx, s)
		metrics.GenerationTotal.WithLabelValues(tplLabel, "timeout").Inc()

	case err == nil:
		files := assembler.Assemble(s.Responses)
		if script, ok := assembler.Find(files, assembler.FileScript); ok {
			metrics.ScriptCharacters.WithLabelValues(tplLabel).Observe(float64(script.Chars))
		}
		r.persist(persistCtx, s)
		metrics.GenerationTotal.WithLabelValues(tplLabel, "completed").Inc()
		metrics.GenerationDuration.WithLabelValues(tplLabel).Observe(time.Since(started).Seconds())
		logger.Info(ctx, "generation completed",
			"template_id", tplLabel,
			"messages", len(s.Messages),
			"topics", len(s.GeneratedFiles.Topics),
			"failed_iterations", s.Stats.FailedIterations,
		)
		em.finish(&Event{Type: EventComplete, SessionID: s.ID, Progress: 100, Session: s, Files: files})

	case s.Status == entity.SessionStatusPaused:
		r.persist(persistCtx, s)
		metrics.GenerationTotal.WithLabelValues(tplLabel, "paused").Inc()
		logger.Info(ctx, "generation paused by client", "step", s.CurrentStepIndex)
		em.finish(nil)

	default:
		r.persist(persistCtx, s)
		metrics.GenerationTotal.WithLabelValues(tplLabel, "error").Inc()
		logger.Error(ctx, "generation failed", err, "step", s.CurrentStepIndex)
		em.finish(&Event{Type: EventError, SessionID: s.ID, Error: err.Error(), Code: apperrors.CodeOf(err)})
	}
}

// prepare 解析会话、模板、提供商与密钥
func (r *Runner) prepare(ctx context.Context, req Request) (*prepared, error) {
	s, err := r.loadSession(ctx, req)
	if err != nil {
		return nil, err
	}
	resumed := s != nil
	if !resumed {
		s = entity.NewSession(req.TemplateID, req.Inputs)
	} else {
		s.Normalize()
		for k, v := range req.Inputs {
			if _, ok := s.Variables[k]; !ok {
				s.Variables[k] = v
			}
		}
	}

	tpl, err := r.resolveTemplate(ctx, req, s)
	if err != nil {
		return nil, err
	}
	if s.TemplateID == "" {
		s.TemplateID = tpl.ID
	}
	if s.CurrentStepIndex > len(tpl.Steps) {
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "session step index %d exceeds template length %d", s.CurrentStepIndex, len(tpl.Steps))
	}
	if !resumed {
		tpl.ApplyInputDefaults(s.Variables)
		if missing := tpl.MissingInputs(s.Variables); len(missing) > 0 {
			return nil, apperrors.Newf(apperrors.CodeInvalidParam, "missing required inputs: %s", strings.Join(missing, ", "))
		}
	}

	pref := r.preference(ctx, firstNonEmpty(req.ClientID, s.ClientID))
	name := firstNonEmpty(req.Provider, s.Provider, prefField(pref, func(p *entity.Preference) string { return p.Provider }))
	provider, err := r.providers.Get(name)
	if err != nil {
		return nil, err
	}
	name = provider.Name()

	keys := req.APIKeys
	if len(keys) == 0 && pref != nil {
		keys = pref.KeysFor(name)
	}
	if len(keys) == 0 {
		keys = r.providers.DefaultKeys(name)
	}
	if len(keys) == 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "no API keys available for provider %q", name)
	}
	model := firstNonEmpty(req.Model, s.Model, prefField(pref, func(p *entity.Preference) string { return p.Model }), r.providers.DefaultModel(name))

	s.Provider = name
	s.Model = model
	if req.ClientID != "" {
		s.ClientID = req.ClientID
	}
	return &prepared{session: s, template: tpl, provider: provider, keys: keys, model: model}, nil
}

func (r *Runner) loadSession(ctx context.Context, req Request) (*entity.Session, error) {
	if req.Session != nil {
		return req.Session, nil
	}
	if req.SessionID == "" {
		return nil, nil
	}
	return r.Load(ctx, req.SessionID)
}

// Load 读取会话快照：先检查点，后数据库
func (r *Runner) Load(ctx context.Context, id string) (*entity.Session, error) {
	if r.stores.Checkpoints != nil {
		s, err := r.stores.Checkpoints.Load(ctx, id)
		if err != nil {
			logger.Warn(ctx, "checkpoint load failed, falling back to database", "session_id", id, "error", err.Error())
		} else if s != nil {
			return s, nil
		}
	}
	if r.stores.Sessions != nil {
		s, err := r.stores.Sessions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	return nil, apperrors.Newf(apperrors.CodeSessionNotFound, "session %s not found", id)
}

// Create 校验请求并保存一个尚未开始的会话，供后台任务续跑
func (r *Runner) Create(ctx context.Context, req Request) (*entity.Session, error) {
	if r.stores.Checkpoints == nil && r.stores.Sessions == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "session storage is not configured")
	}
	p, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	s := p.session
	s.Status = entity.SessionStatusPaused
	if r.stores.Checkpoints != nil {
		if err := r.stores.Checkpoints.Save(ctx, s); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save session")
		}
	}
	if r.stores.Sessions != nil {
		if err := r.stores.Sessions.Save(ctx, s); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save session")
		}
	}
	return s, nil
}

// Delete 删除会话的检查点与持久化记录
func (r *Runner) Delete(ctx context.Context, id string) error {
	if _, err := r.Load(ctx, id); err != nil {
		return err
	}
	if r.stores.Checkpoints != nil {
		if err := r.stores.Checkpoints.Delete(ctx, id); err != nil {
			return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete checkpoint")
		}
	}
	if r.stores.Sessions != nil {
		if err := r.stores.Sessions.Delete(ctx, id); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete session")
		}
	}
	return nil
}

func (r *Runner) resolveTemplate(ctx context.Context, req Request, s *entity.Session) (*entity.Template, error) {
	tpl := req.Template
	if tpl == nil {
		tpl = s.Template
	}
	if tpl != nil {
		if tpl.ID == "" {
			tpl.ID = firstNonEmpty(s.TemplateID, "custom")
		}
		if err := tpl.Validate(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid template")
		}
		s.Template = tpl
		return tpl, nil
	}

	id := firstNonEmpty(s.TemplateID, req.TemplateID)
	if id == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "template_id or template is required")
	}
	return r.templates.Get(ctx, id)
}

func (r *Runner) preference(ctx context.Context, clientID string) *entity.Preference {
	if clientID == "" || r.stores.Preferences == nil {
		return nil
	}
	pref, err := r.stores.Preferences.Get(ctx, clientID)
	if err != nil {
		logger.Warn(ctx, "preference lookup failed", "client_id", clientID, "error", err.Error())
		return nil
	}
	return pref
}

func (r *Runner) rememberTemplate(ctx context.Context, clientID, templateID string) {
	if clientID == "" || r.stores.Preferences == nil {
		return
	}
	pref, err := r.stores.Preferences.Get(ctx, clientID)
	if err != nil {
		return
	}
	if pref == nil {
		pref = &entity.Preference{ClientID: clientID}
	}
	pref.LastTemplateID = templateID
	if err := r.stores.Preferences.Put(ctx, pref); err != nil {
		logger.Warn(ctx, "preference update failed", "client_id", clientID, "error", err.Error())
	}
}

// persist 写入检查点与数据库，失败只记录日志
func (r *Runner) persist(ctx context.Context, s *entity.Session) {
	if r.stores.Checkpoints != nil {
		if err := r.stores.Checkpoints.Save(ctx, s); err != nil {
			logger.Warn(ctx, "checkpoint save failed", "error", err.Error())
		}
	}
	if r.stores.Sessions != nil {
		if err := r.stores.Sessions.Save(ctx, s); err != nil {
			logger.Error(ctx, "session save failed", err)
		}
	}
}

// streamObserver 把引擎事件转成流事件，并按需写检查点
type streamObserver struct {
	engine.NopObserver
	runner    *Runner
	emitter   *emitter
	sessionID string
}

func (o *streamObserver) OnMessage(_ context.Context, ev engine.MessageEvent) {
	o.emitter.send(Event{
		Type:        EventMessage,
		SessionID:   o.sessionID,
		Message:     ev.Message,
		Progress:    ev.Progress,
		CurrentStep: ev.CurrentStep,
	})
}

func (o *streamObserver) OnCheckpoint(ctx context.Context, s *entity.Session) {
	if !o.runner.opts.Checkpoint || o.runner.stores.Checkpoints == nil {
		return
	}
	if err := o.runner.stores.Checkpoints.Save(ctx, s); err != nil {
		logger.Warn(ctx, "checkpoint save failed", "error", err.Error())
	}
}

func prefField(p *entity.Preference, get func(*entity.Preference) string) string {
	if p == nil {
		return ""
	}
	return get(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// String 便于日志输出
func (r Request) String() string {
	return fmt.Sprintf("template=%s session=%s provider=%s", firstNonEmpty(r.TemplateID, "-"), firstNonEmpty(r.SessionID, "-"), firstNonEmpty(r.Provider, "default"))
}
