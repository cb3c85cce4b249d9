package engine

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([\p{L}\p{N}_.\-]+)\s*\}\}`)

// Lookup 变量查找
type Lookup func(name string) (string, bool)

// Substitute 替换 {{VAR}} 占位符；未定义的变量替换为空字符串，并按出现顺序返回其名称
func Substitute(tpl string, lookup Lookup) (string, []string) {
	var missing []string
	seen := map[string]bool{}
	out := placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return ""
	})
	return out, missing
}

// scope 循环内的局部绑定优先于会话变量
type scope struct {
	locals map[string]string
	vars   map[string]string
}

func (s scope) lookup(name string) (string, bool) {
	if v, ok := s.locals[name]; ok {
		return v, true
	}
	if v, ok := s.vars[name]; ok {
		return v, true
	}
	// 变量名大小写不一致时的兜底
	upper := strings.ToUpper(name)
	if upper != name {
		if v, ok := s.locals[upper]; ok {
			return v, true
		}
		if v, ok := s.vars[upper]; ok {
			return v, true
		}
	}
	return "", false
}
