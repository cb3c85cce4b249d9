package templates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
)

// maxCustomListing 合并列表时读取的自定义模板上限
const maxCustomListing = 100

// Service 模板查询与维护：自定义模板优先，其次内置模板
type Service struct {
	catalog *Catalog
	repo    repository.TemplateRepository
}

// NewService 创建模板服务，repo 为 nil 时只提供内置模板
func NewService(catalog *Catalog, repo repository.TemplateRepository) *Service {
	return &Service{catalog: catalog, repo: repo}
}

// Get 查找模板
func (s *Service) Get(ctx context.Context, id string) (*entity.Template, error) {
	if s.repo != nil {
		tpl, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tpl != nil {
			return tpl, nil
		}
	}
	if tpl, ok := s.catalog.Get(id); ok {
		return tpl, nil
	}
	return nil, apperrors.Newf(apperrors.CodeTemplateNotFound, "template %q not found", id)
}

// List 列出内置与自定义模板，tag / category 为空时不过滤
func (s *Service) List(ctx context.Context, filter repository.TemplateFilter) ([]*entity.Template, error) {
	var out []*entity.Template
	seen := map[string]bool{}

	if s.repo != nil {
		page, err := s.repo.List(ctx, filter, repository.NewPagination(1, maxCustomListing))
		if err != nil {
			return nil, err
		}
		for _, tpl := range page.Items {
			seen[tpl.ID] = true
			out = append(out, tpl)
		}
	}
	for _, tpl := range s.catalog.All() {
		if seen[tpl.ID] || !matches(tpl, filter) {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// Create 新建自定义模板
func (s *Service) Create(ctx context.Context, tpl *entity.Template) (*entity.Template, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if _, ok := s.catalog.Get(tpl.ID); ok {
		return nil, apperrors.Newf(apperrors.CodeConflict, "template id %q is reserved by a built-in template", tpl.ID)
	}
	if err := validate(tpl); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Newf(apperrors.CodeConflict, "template %q already exists", tpl.ID)
	}

	now := time.Now()
	tpl.BuiltIn = false
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	logger.Info(ctx, "custom template created", "template_id", tpl.ID, "steps", len(tpl.Steps))
	return tpl, nil
}

// Update 覆盖自定义模板，内置模板不可修改
func (s *Service) Update(ctx context.Context, id string, tpl *entity.Template) (*entity.Template, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Get(id); ok {
		return nil, apperrors.Newf(apperrors.CodeConflict, "built-in template %q cannot be modified", id)
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.Newf(apperrors.CodeTemplateNotFound, "template %q not found", id)
	}

	tpl.ID = id
	if err := validate(tpl); err != nil {
		return nil, err
	}
	tpl.BuiltIn = false
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete 删除自定义模板
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.catalog.Get(id); ok {
		return apperrors.Newf(apperrors.CodeConflict, "built-in template %q cannot be deleted", id)
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.Newf(apperrors.CodeTemplateNotFound, "template %q not found", id)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) writable() error {
	if s.repo == nil {
		return apperrors.New(apperrors.CodeServiceUnavailable, "custom template storage is not configured")
	}
	return nil
}

func validate(tpl *entity.Template) error {
	if err := tpl.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid template")
	}
	return nil
}

func matches(tpl *entity.Template, f repository.TemplateFilter) bool {
	if f.Category != "" && !strings.EqualFold(tpl.Category, f.Category) {
		return false
	}
	if f.Tag == "" {
		return true
	}
	for _, t := range tpl.Tags {
		if strings.EqualFold(t, f.Tag) {
			return true
		}
	}
	return false
}
