package entity

import "strings"

// GeneratedFiles 运行过程中累积的逻辑文件
type GeneratedFiles struct {
	Structure  string            `json:"estrutura,omitempty"`
	Hook       string            `json:"hook,omitempty"`
	Topics     []string          `json:"topicos"`
	Characters string            `json:"personagens,omitempty"`
	Soundtrack string            `json:"trilha,omitempty"`
	Takes      string            `json:"takes,omitempty"`
	Extra      map[string]string `json:"extras,omitempty"`
}

// Store 按输出变量名归档非循环步骤的输出
func (f *GeneratedFiles) Store(outputVar, text string) {
	switch strings.ToUpper(strings.TrimSpace(outputVar)) {
	case "ESTRUTURA", "STRUCTURE":
		f.Structure = text
	case "HOOK":
		f.Hook = text
	case "PERSONAGENS", "CHARACTERS":
		f.Characters = text
	case "TRILHA", "SOUNDTRACK":
		f.Soundtrack = text
	case "TAKES":
		f.Takes = text
	case "":
	default:
		if f.Extra == nil {
			f.Extra = map[string]string{}
		}
		f.Extra[strings.ToLower(outputVar)] = text
	}
}

// AppendTopic 追加一次循环迭代的最终输出
func (f *GeneratedFiles) AppendTopic(text string) {
	f.Topics = append(f.Topics, text)
}

func (f GeneratedFiles) clone() GeneratedFiles {
	c := f
	c.Topics = append([]string(nil), f.Topics...)
	if f.Extra != nil {
		c.Extra = cloneStringMap(f.Extra)
	}
	return c
}
