// Package templates 管理内置模板目录与自定义模板
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"script-studio-api/internal/domain/entity"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Catalog 只读的内置模板集合
type Catalog struct {
	byID  map[string]*entity.Template
	order []string
}

// LoadBuiltin 解析嵌入的内置模板
func LoadBuiltin() (*Catalog, error) {
	return LoadCatalog(builtinFS, "builtin")
}

// LoadCatalog 从任意文件系统目录加载 YAML 模板
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	c := &Catalog{byID: make(map[string]*entity.Template, len(entries))}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		tpl, err := ParseYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		tpl.BuiltIn = true
		if _, dup := c.byID[tpl.ID]; dup {
			return nil, fmt.Errorf("duplicate built-in template id %q", tpl.ID)
		}
		c.byID[tpl.ID] = tpl
		c.order = append(c.order, tpl.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// ParseYAML 解析并校验一个 YAML 模板文档
func ParseYAML(raw []byte) (*entity.Template, error) {
	var doc entity.TemplateDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	tpl, err := doc.ToTemplate()
	if err != nil {
		return nil, err
	}
	if tpl.ID == "" {
		return nil, fmt.Errorf("template %q has no id", tpl.Name)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Get 按 ID 查找
func (c *Catalog) Get(id string) (*entity.Template, bool) {
	tpl, ok := c.byID[id]
	return tpl, ok
}

// All 按 ID 排序返回全部内置模板
func (c *Catalog) All() []*entity.Template {
	out := make([]*entity.Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
