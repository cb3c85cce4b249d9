package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	apperrors "script-studio-api/pkg/errors"
)

// TemplateRepository 自定义模板仓储实现
type TemplateRepository struct {
	client *Client
}

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(client *Client) *TemplateRepository {
	return &TemplateRepository{client: client}
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Create")
	defer span.End()

	now := time.Now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	row, err := newTemplateRow(tpl)
	if err != nil {
		return err
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(row).Error; err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Newf(apperrors.CodeConflict, "template %s already exists", tpl.ID)
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Update")
	defer span.End()

	tpl.UpdatedAt = time.Now()
	row, err := newTemplateRow(tpl)
	if err != nil {
		return err
	}

	db := getDB(ctx, r.client.db)
	result := db.Model(&templateRow{}).Where("id = ?", tpl.ID).Select("*").Omit("created_at").Updates(row)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeTemplateNotFound, "template %s not found", tpl.ID)
	}
	return nil
}

// Delete 删除模板
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&templateRow{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取模板
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var row templateRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return row.toEntity()
}

// List 按标签与分类分页查询模板
func (r *TemplateRepository) List(ctx context.Context, filter repository.TemplateFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Template], error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&templateRow{})
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Tag != "" {
		db = db.Where("? = ANY(tags)", filter.Tag)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	var rows []templateRow
	if err := db.Order("created_at DESC").Offset(pagination.Offset()).Limit(pagination.Limit()).Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	items := make([]*entity.Template, 0, len(rows))
	for i := range rows {
		tpl, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, tpl)
	}
	return repository.NewPagedResult(items, total, pagination), nil
}
