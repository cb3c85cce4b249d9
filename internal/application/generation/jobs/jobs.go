// Package jobs 通过消息队列在后台执行生成会话
package jobs

import (
	"context"

	"github.com/google/uuid"

	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/infrastructure/messaging"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
)

// SessionRunner 创建与执行会话
type SessionRunner interface {
	Create(ctx context.Context, req session.Request) (*entity.Session, error)
	Run(ctx context.Context, req session.Request) (*entity.Session, error)
}

// Publisher 发布生成任务
type Publisher interface {
	PublishGenerationJob(ctx context.Context, job *messaging.GenerationJobMessage) (string, error)
}

// Ticket 入队结果
type Ticket struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	StreamID  string `json:"stream_id"`
}

// Enqueuer API 侧：创建会话并投递任务
type Enqueuer struct {
	runner    SessionRunner
	publisher Publisher
}

// NewEnqueuer 创建入队器
func NewEnqueuer(runner SessionRunner, publisher Publisher) *Enqueuer {
	return &Enqueuer{runner: runner, publisher: publisher}
}

// Enqueue 同步校验请求，会话落盘后再投递
func (e *Enqueuer) Enqueue(ctx context.Context, req session.Request) (*Ticket, error) {
	s, err := e.runner.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	job := &messaging.GenerationJobMessage{
		JobID:     uuid.NewString(),
		SessionID: s.ID,
		ClientID:  s.ClientID,
	}
	streamID, err := e.publisher.PublishGenerationJob(ctx, job)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMessagingError, "failed to enqueue generation job")
	}
	logger.Info(ctx, "generation job enqueued", "job_id", job.JobID, "session_id", s.ID)
	return &Ticket{JobID: job.JobID, SessionID: s.ID, StreamID: streamID}, nil
}

// Worker 消费侧：续跑已创建的会话
type Worker struct {
	runner SessionRunner
}

// NewWorker 创建任务处理器
func NewWorker(runner SessionRunner) *Worker {
	return &Worker{runner: runner}
}

// Handle 处理一条生成任务消息。
// 只有基础设施类错误返回给消费者重投，生成本身的失败已写入会话状态。
func (w *Worker) Handle(ctx context.Context, msg *messaging.Message) error {
	var job messaging.GenerationJobMessage
	if err := msg.UnmarshalPayload(&job); err != nil {
		logger.Error(ctx, "malformed generation job", err, "message_id", msg.ID)
		return nil
	}
	req := session.Request{SessionID: job.SessionID, ClientID: job.ClientID}
	logger.Info(ctx, "generation job started", "job_id", job.JobID, "request", req.String())

	s, err := w.runner.Run(ctx, req)
	if err == nil {
		logger.Info(ctx, "generation job completed", "job_id", job.JobID, "messages", len(s.Messages))
		return nil
	}
	if Retryable(err) {
		return err
	}
	logger.Warn(ctx, "generation job finished with error", "job_id", job.JobID, "error", err.Error())
	return nil
}

// Retryable 判断错误是否值得重投
func Retryable(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeSessionBusy,
		apperrors.CodeServiceUnavailable,
		apperrors.CodeDatabaseError,
		apperrors.CodeCacheError:
		return true
	}
	return false
}
