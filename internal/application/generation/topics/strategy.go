package topics

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy 一种纯函数式的切分启发式
type Strategy interface {
	Name() string
	// Split 返回切分出的非空块；无法识别时返回 nil
	Split(text string, expected int) []string
}

// vocabulary 主题标题词（大小写、重音不敏感）
const vocabulary = `(?:t[oó]pico|topic|curiosidade|curiosity|ato|act)`

// markerStrategy 以正则匹配位置作为块的起点；含分组时以第一个分组的起点为准
type markerStrategy struct {
	name    string
	pattern *regexp.Regexp
	// requireExpected 标记数少于期望值时放弃
	requireExpected bool
}

func (s *markerStrategy) Name() string { return s.name }

func (s *markerStrategy) Split(text string, expected int) []string {
	locs := s.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	if s.requireExpected && len(locs) < expected {
		return nil
	}

	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = markerStart(locs[i+1])
		}
		// 只有标题、没有正文的片段丢弃
		if strings.TrimSpace(text[loc[1]:end]) == "" {
			continue
		}
		blocks = append(blocks, strings.TrimSpace(text[markerStart(loc):end]))
	}
	return blocks
}

func markerStart(loc []int) int {
	if len(loc) >= 4 && loc[2] >= 0 {
		return loc[2]
	}
	return loc[0]
}

// labeled 标记可位于行首，也可在空白或句末标点之后内联出现
func labeled(terminator string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)(?:^|[\s.;!?])([*_#>]*[ \t]*` + vocabulary + `[ \t]*#?\d+[ \t]*[*_]*[ \t]*` + terminator + `)`)
}

// LabeledColon "TÓPICO 1:" / "**Curiosidade 2:**"
func LabeledColon() Strategy {
	return &markerStrategy{
		name:    "labeled-colon",
		pattern: labeled(`:`),
	}
}

// LabeledHyphen "TÓPICO 1 -" / "Ato 2 —"
func LabeledHyphen() Strategy {
	return &markerStrategy{
		name:    "labeled-hyphen",
		pattern: labeled(`[-–—]`),
	}
}

// LeadingNumber "1." / "2." 行首编号，标记数不足期望值时不切分
func LeadingNumber() Strategy {
	return &markerStrategy{
		name:            "leading-number",
		pattern:         regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`),
		requireExpected: true,
	}
}

// MarkdownHeading "## Tópico ..." 标题后紧跟主题词
func MarkdownHeading() Strategy {
	return &markerStrategy{
		name:    "markdown-heading",
		pattern: regexp.MustCompile(`(?im)^[ \t]*#{1,3}[ \t]*[*_]*` + vocabulary),
	}
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// largeBlocks 空行分段后只保留足够长的段落，不保证与真实主题边界对齐
type largeBlocks struct {
	minRunes int
}

// LargeParagraphs 兜底策略
func LargeParagraphs(minRunes int) Strategy {
	return &largeBlocks{minRunes: minRunes}
}

func (s *largeBlocks) Name() string { return "large-paragraphs" }

func (s *largeBlocks) Split(text string, expected int) []string {
	var blocks []string
	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" || utf8.RuneCountInString(p) <= s.minRunes {
			continue
		}
		blocks = append(blocks, p)
	}
	return blocks
}
