package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/pkg/logger"
)

// CachedTemplateRepository 为模板仓储的按 ID 读取加一层缓存
type CachedTemplateRepository struct {
	next  repository.TemplateRepository
	cache *Cache
	ttl   time.Duration
}

// NewCachedTemplateRepository 创建带缓存的模板仓储
func NewCachedTemplateRepository(next repository.TemplateRepository, cache *Cache, ttl time.Duration) *CachedTemplateRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedTemplateRepository{next: next, cache: cache, ttl: ttl}
}

// GetByID 读穿缓存，不存在的模板同样缓存为 null
func (r *CachedTemplateRepository) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	data, err := r.cache.Fetch(ctx, TemplateKey(id), r.ttl, func(ctx context.Context) (any, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		logger.Warn(ctx, "template cache unavailable, reading through", "template_id", id, "error", err.Error())
		return r.next.GetByID(ctx, id)
	}
	var tpl *entity.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to decode cached template: %w", err)
	}
	return tpl, nil
}

// Create 写入后清除缓存
func (r *CachedTemplateRepository) Create(ctx context.Context, tpl *entity.Template) error {
	if err := r.next.Create(ctx, tpl); err != nil {
		return err
	}
	r.evict(ctx, tpl.ID)
	return nil
}

// Update 写入后清除缓存
func (r *CachedTemplateRepository) Update(ctx context.Context, tpl *entity.Template) error {
	if err := r.next.Update(ctx, tpl); err != nil {
		return err
	}
	r.evict(ctx, tpl.ID)
	return nil
}

// Delete 删除后清除缓存
func (r *CachedTemplateRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

// List 直接查询底层仓储
func (r *CachedTemplateRepository) List(ctx context.Context, filter repository.TemplateFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Template], error) {
	return r.next.List(ctx, filter, pagination)
}

func (r *CachedTemplateRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Evict(ctx, TemplateKey(id)); err != nil {
		logger.Warn(ctx, "failed to evict template cache", "template_id", id, "error", err.Error())
	}
}
