// Package assembler 从模型回复中组装交付文件
package assembler

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// 交付文件名
const (
	FileScript     = "roteiro"
	FileStructure  = "estrutura"
	FileCharacters = "personagens"
	FileSoundtrack = "trilha"
	FileTakes      = "takes"
)

// blockKey 可拼入完整脚本的分段输出，如 TOPICO_3、CURIOSITY_1
var blockKey = regexp.MustCompile(`(?i)^(?:topic|topico|tópico|curiosity|curiosidade|act|ato|scene|cena)_(\d+)$`)

// auxiliary 可选的辅助文件：文件名 → 候选输出变量
var auxiliary = []struct {
	file string
	keys []string
}{
	{FileStructure, []string{"ESTRUTURA", "STRUCTURE"}},
	{FileCharacters, []string{"PERSONAGENS", "CHARACTERS"}},
	{FileSoundtrack, []string{"TRILHA", "SOUNDTRACK"}},
	{FileTakes, []string{"TAKES"}},
}

// File 一个交付文件
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Chars   int    `json:"chars"`
}

type block struct {
	key string
	n   int
}

// Assemble 根据 AI 回复映射生成交付文件，结果只取决于映射内容。
//
// 完整脚本为 HOOK 加上按数字后缀升序排列的分段，以空行分隔，空内容被忽略。
func Assemble(responses map[string]string) []File {
	files := make([]File, 0, 1+len(auxiliary))
	if script := Script(responses); script != "" {
		files = append(files, newFile(FileScript, script))
	}
	for _, aux := range auxiliary {
		for _, k := range aux.keys {
			if v := strings.TrimSpace(lookup(responses, k)); v != "" {
				files = append(files, newFile(aux.file, v))
				break
			}
		}
	}
	return files
}

// Script 拼接完整脚本
func Script(responses map[string]string) string {
	var blocks []block
	for k := range responses {
		m := blockKey.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		blocks = append(blocks, block{key: k, n: n})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].n != blocks[j].n {
			return blocks[i].n < blocks[j].n
		}
		return blocks[i].key < blocks[j].key
	})

	parts := make([]string, 0, len(blocks)+1)
	if hook := strings.TrimSpace(lookup(responses, "HOOK")); hook != "" {
		parts = append(parts, hook)
	}
	for _, b := range blocks {
		if v := strings.TrimSpace(responses[b.key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Find 按名称查找文件
func Find(files []File, name string) (File, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

func newFile(name, content string) File {
	return File{Name: name, Content: content, Chars: utf8.RuneCountInString(content)}
}

// lookup 精确匹配优先，其次忽略大小写（按键排序保证确定性）
func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.EqualFold(k, key) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return m[keys[0]]
}
