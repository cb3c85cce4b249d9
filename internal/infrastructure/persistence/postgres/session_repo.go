package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
)

// SessionRepository 会话仓储实现
type SessionRepository struct {
	client *Client
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(client *Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save 插入或覆盖会话
func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.Save")
	defer span.End()

	row, err := newSessionRow(session)
	if err != nil {
		return err
	}

	db := getDB(ctx, r.client.db)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"template_id", "client_id", "status", "current_step_index", "payload", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取会话
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var row sessionRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return row.toEntity()
}

// Delete 删除会话
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&sessionRow{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListByClient 分页列出某个客户端的会话
func (r *SessionRepository) ListByClient(ctx context.Context, clientID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Session], error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.ListByClient")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&sessionRow{}).Where("client_id = ?", clientID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	var rows []sessionRow
	if err := db.Order("updated_at DESC").Offset(pagination.Offset()).Limit(pagination.Limit()).Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]*entity.Session, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return repository.NewPagedResult(items, total, pagination), nil
}
