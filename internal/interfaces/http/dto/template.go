package dto

import "script-studio-api/internal/domain/entity"

// TemplateSummary 模板列表项
type TemplateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	BuiltIn     bool     `json:"built_in"`
	StepCount   int      `json:"step_count"`
}

// ToTemplateSummaries 转换模板列表
func ToTemplateSummaries(tpls []*entity.Template) []*TemplateSummary {
	out := make([]*TemplateSummary, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, &TemplateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			Tags:        t.Tags,
			BuiltIn:     t.BuiltIn,
			StepCount:   len(t.Steps),
		})
	}
	return out
}
