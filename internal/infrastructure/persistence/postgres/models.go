package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"script-studio-api/internal/domain/entity"
)

// jsonb 以文本形式写入 jsonb 列
type jsonb []byte

// Value 实现 driver.Valuer 接口
func (j jsonb) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan 实现 sql.Scanner 接口
func (j *jsonb) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = jsonb(v)
	default:
		return fmt.Errorf("unsupported jsonb source %T", value)
	}
	return nil
}

// templateRow 自定义模板表
type templateRow struct {
	ID          string         `gorm:"type:varchar(64);primaryKey"`
	Name        string         `gorm:"type:varchar(255);not null"`
	Description string         `gorm:"type:text"`
	Category    string         `gorm:"type:varchar(64);index"`
	Tags        pq.StringArray `gorm:"type:text[]"`
	Inputs      jsonb          `gorm:"type:jsonb"`
	Steps       jsonb          `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (templateRow) TableName() string { return "script_templates" }

func newTemplateRow(t *entity.Template) (*templateRow, error) {
	inputs, err := json.Marshal(t.Inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inputs: %w", err)
	}
	steps, err := json.Marshal(entity.EncodeSteps(t.Steps))
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps: %w", err)
	}
	return &templateRow{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Tags:        pq.StringArray(t.Tags),
		Inputs:      inputs,
		Steps:       steps,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

func (r *templateRow) toEntity() (*entity.Template, error) {
	var docs []entity.StepDocument
	if err := json.Unmarshal(r.Steps, &docs); err != nil {
		return nil, fmt.Errorf("template %s: failed to decode steps: %w", r.ID, err)
	}
	steps, err := entity.DecodeSteps(docs)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", r.ID, err)
	}
	var inputs []entity.TemplateInput
	if len(r.Inputs) > 0 {
		if err := json.Unmarshal(r.Inputs, &inputs); err != nil {
			return nil, fmt.Errorf("template %s: failed to decode inputs: %w", r.ID, err)
		}
	}
	return &entity.Template{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Tags:        []string(r.Tags),
		Inputs:      inputs,
		Steps:       steps,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// sessionRow 会话表，完整状态保存在 payload
type sessionRow struct {
	ID               string    `gorm:"type:varchar(64);primaryKey"`
	TemplateID       string    `gorm:"type:varchar(64);index"`
	ClientID         string    `gorm:"type:varchar(128);index"`
	Status           string    `gorm:"type:varchar(32);not null"`
	CurrentStepIndex int       `gorm:"not null;default:0"`
	Payload          jsonb     `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string { return "script_sessions" }

func newSessionRow(s *entity.Session) (*sessionRow, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return &sessionRow{
		ID:               s.ID,
		TemplateID:       s.TemplateID,
		ClientID:         s.ClientID,
		Status:           string(s.Status),
		CurrentStepIndex: s.CurrentStepIndex,
		Payload:          payload,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}, nil
}

func (r *sessionRow) toEntity() (*entity.Session, error) {
	var s entity.Session
	if err := json.Unmarshal(r.Payload, &s); err != nil {
		return nil, fmt.Errorf("session %s: failed to decode payload: %w", r.ID, err)
	}
	s.Normalize()
	return &s, nil
}
