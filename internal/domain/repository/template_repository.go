package repository

import (
	"context"

	"script-studio-api/internal/domain/entity"
)

// TemplateFilter 模板查询条件
type TemplateFilter struct {
	Tag      string
	Category string
}

// TemplateRepository 自定义模板存储
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.Template) error
	Update(ctx context.Context, tpl *entity.Template) error
	Delete(ctx context.Context, id string) error
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Template, error)
	List(ctx context.Context, filter TemplateFilter, pagination Pagination) (*PagedResult[*entity.Template], error)
}
