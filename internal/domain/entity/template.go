package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StepKind 步骤类型
type StepKind string

const (
	StepKindPrompt StepKind = "prompt"
	StepKindLoop   StepKind = "loop"
)

// OperationLoop 目前唯一支持的 operation 步骤
const OperationLoop = "LOOP"

// Step 模板步骤，只能是 *PromptStep 或 *LoopStep
type Step interface {
	StepID() string
	Kind() StepKind
	sealed()
}

// Validation 步骤输出校验规则
type Validation struct {
	// CleanText 去除 Markdown 修饰
	CleanText bool `json:"clean_text,omitempty" yaml:"clean_text,omitempty"`
}

// PromptStep 直接向模型发送提示词的步骤
type PromptStep struct {
	ID          string
	Name        string
	Prompt      string
	UsesContext bool
	OutputVar   string
	Validation  Validation
}

func (s *PromptStep) StepID() string { return s.ID }
func (s *PromptStep) Kind() StepKind { return StepKindPrompt }
func (s *PromptStep) sealed()        {}

// LoopExtract 数组变量缺失时，从结构文档中抽取主题块
type LoopExtract struct {
	// From 结构文档所在变量
	From string `json:"from" yaml:"from"`
	// Count 期望数量所在变量
	Count string `json:"count" yaml:"count"`
}

// LoopStep 对数组变量逐项执行嵌套步骤
type LoopStep struct {
	ID       string
	Name     string
	Array    string
	ItemVar  string
	IndexVar string
	Extract  *LoopExtract
	Steps    []Step
}

func (s *LoopStep) StepID() string { return s.ID }
func (s *LoopStep) Kind() StepKind { return StepKindLoop }
func (s *LoopStep) sealed()        {}

// TemplateInput 模板声明的用户输入变量
type TemplateInput struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Template 声明式生成模板
type Template struct {
	ID          string
	Name        string
	Description string
	Category    string
	Tags        []string
	BuiltIn     bool
	Inputs      []TemplateInput
	Steps       []Step
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StepLabel 步骤的展示名称
func StepLabel(s Step) string {
	switch st := s.(type) {
	case *PromptStep:
		if st.Name != "" {
			return st.Name
		}
	case *LoopStep:
		if st.Name != "" {
			return st.Name
		}
	}
	return s.StepID()
}

// ApplyInputDefaults 用模板默认值补全缺失的输入
func (t *Template) ApplyInputDefaults(vars map[string]string) {
	for _, in := range t.Inputs {
		if _, ok := vars[in.Name]; !ok && in.Default != "" {
			vars[in.Name] = in.Default
		}
	}
}

// MissingInputs 返回缺失的必填输入
func (t *Template) MissingInputs(vars map[string]string) []string {
	var missing []string
	for _, in := range t.Inputs {
		if !in.Required {
			continue
		}
		if strings.TrimSpace(vars[in.Name]) == "" {
			missing = append(missing, in.Name)
		}
	}
	return missing
}

// Validate 校验模板结构
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("template %q has no steps", t.Name)
	}
	seen := map[string]bool{}
	return validateSteps(t.Steps, seen, false)
}

func validateSteps(steps []Step, seen map[string]bool, nested bool) error {
	for i, s := range steps {
		if s == nil {
			return fmt.Errorf("step %d is empty", i)
		}
		id := strings.TrimSpace(s.StepID())
		if id == "" {
			return fmt.Errorf("step %d has no id", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate step id %q", id)
		}
		seen[id] = true

		switch st := s.(type) {
		case *PromptStep:
			if strings.TrimSpace(st.Prompt) == "" {
				return fmt.Errorf("step %q has an empty prompt", id)
			}
		case *LoopStep:
			if nested {
				return fmt.Errorf("step %q: nested loops are not supported", id)
			}
			if strings.TrimSpace(st.Array) == "" {
				return fmt.Errorf("loop step %q has no array variable", id)
			}
			if len(st.Steps) == 0 {
				return fmt.Errorf("loop step %q has no nested steps", id)
			}
			if st.Extract != nil && (st.Extract.From == "" || st.Extract.Count == "") {
				return fmt.Errorf("loop step %q: extract needs both from and count", id)
			}
			if err := validateSteps(st.Steps, seen, true); err != nil {
				return err
			}
		default:
			return fmt.Errorf("step %q has unsupported type %T", id, s)
		}
	}
	return nil
}

// StepDocument 步骤的序列化形式
type StepDocument struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type        string         `json:"type" yaml:"type"`
	Operation   string         `json:"operation,omitempty" yaml:"operation,omitempty"`
	Prompt      string         `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	UsesContext bool           `json:"uses_context,omitempty" yaml:"uses_context,omitempty"`
	OutputVar   string         `json:"output_var,omitempty" yaml:"output_var,omitempty"`
	Validation  *Validation    `json:"validation,omitempty" yaml:"validation,omitempty"`
	Array       string         `json:"array,omitempty" yaml:"array,omitempty"`
	ItemVar     string         `json:"item_var,omitempty" yaml:"item_var,omitempty"`
	IndexVar    string         `json:"index_var,omitempty" yaml:"index_var,omitempty"`
	Extract     *LoopExtract   `json:"extract,omitempty" yaml:"extract,omitempty"`
	Steps       []StepDocument `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// TemplateDocument 模板的序列化形式（JSON / YAML）
type TemplateDocument struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string          `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	BuiltIn     bool            `json:"built_in,omitempty" yaml:"-"`
	Inputs      []TemplateInput `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Steps       []StepDocument  `json:"steps" yaml:"steps"`
	CreatedAt   *time.Time      `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty" yaml:"-"`
}

// ToTemplate 转换为领域模板
func (d TemplateDocument) ToTemplate() (*Template, error) {
	steps, err := DecodeSteps(d.Steps)
	if err != nil {
		return nil, err
	}
	t := &Template{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Tags:        d.Tags,
		BuiltIn:     d.BuiltIn,
		Inputs:      d.Inputs,
		Steps:       steps,
	}
	if d.CreatedAt != nil {
		t.CreatedAt = *d.CreatedAt
	}
	if d.UpdatedAt != nil {
		t.UpdatedAt = *d.UpdatedAt
	}
	return t, nil
}

// Document 转换为序列化形式
func (t *Template) Document() TemplateDocument {
	d := TemplateDocument{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Tags:        t.Tags,
		BuiltIn:     t.BuiltIn,
		Inputs:      t.Inputs,
		Steps:       EncodeSteps(t.Steps),
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		d.CreatedAt = &created
	}
	if !t.UpdatedAt.IsZero() {
		updated := t.UpdatedAt
		d.UpdatedAt = &updated
	}
	return d
}

// MarshalJSON 实现 json.Marshaler
func (t *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Document())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (t *Template) UnmarshalJSON(data []byte) error {
	var d TemplateDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	decoded, err := d.ToTemplate()
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

// DecodeSteps 将序列化步骤转换为步骤类型
func DecodeSteps(docs []StepDocument) ([]Step, error) {
	steps := make([]Step, 0, len(docs))
	for i, d := range docs {
		s, err := decodeStep(d)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func decodeStep(d StepDocument) (Step, error) {
	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "", string(StepKindPrompt):
		s := &PromptStep{
			ID:          d.ID,
			Name:        d.Name,
			Prompt:      d.Prompt,
			UsesContext: d.UsesContext,
			OutputVar:   d.OutputVar,
		}
		if d.Validation != nil {
			s.Validation = *d.Validation
		}
		return s, nil
	case "operation", string(StepKindLoop):
		if d.Operation != "" && !strings.EqualFold(d.Operation, OperationLoop) {
			return nil, fmt.Errorf("unsupported operation %q", d.Operation)
		}
		nested, err := DecodeSteps(d.Steps)
		if err != nil {
			return nil, fmt.Errorf("loop %q: %w", d.ID, err)
		}
		return &LoopStep{
			ID:       d.ID,
			Name:     d.Name,
			Array:    d.Array,
			ItemVar:  d.ItemVar,
			IndexVar: d.IndexVar,
			Extract:  d.Extract,
			Steps:    nested,
		}, nil
	default:
		return nil, fmt.Errorf("unknown step type %q", d.Type)
	}
}

// EncodeSteps 将步骤转换为序列化形式
func EncodeSteps(steps []Step) []StepDocument {
	docs := make([]StepDocument, 0, len(steps))
	for _, s := range steps {
		switch st := s.(type) {
		case *PromptStep:
			d := StepDocument{
				ID:          st.ID,
				Name:        st.Name,
				Type:        string(StepKindPrompt),
				Prompt:      st.Prompt,
				UsesContext: st.UsesContext,
				OutputVar:   st.OutputVar,
			}
			if st.Validation != (Validation{}) {
				v := st.Validation
				d.Validation = &v
			}
			docs = append(docs, d)
		case *LoopStep:
			docs = append(docs, StepDocument{
				ID:        st.ID,
				Name:      st.Name,
				Type:      "operation",
				Operation: OperationLoop,
				Array:     st.Array,
				ItemVar:   st.ItemVar,
				IndexVar:  st.IndexVar,
				Extract:   st.Extract,
				Steps:     EncodeSteps(st.Steps),
			})
		}
	}
	return docs
}
