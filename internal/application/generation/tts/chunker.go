// Package tts 将脚本切分为语音合成服务可接受的片段
package tts

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize 单个片段的最大字符数
const DefaultChunkSize = 5000

var (
	paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)
	sentenceEnd  = regexp.MustCompile(`[.!?…]+["'”»)]*\s+`)
)

// Chunker 按段落、句子、单词的优先级切分文本
type Chunker struct {
	limit int
}

// NewChunker 创建切分器，limit <= 0 时使用默认值
func NewChunker(limit int) *Chunker {
	if limit <= 0 {
		limit = DefaultChunkSize
	}
	return &Chunker{limit: limit}
}

// Limit 片段上限
func (c *Chunker) Limit() int { return c.limit }

// Split 切分文本，每个片段不超过上限。
// 只有单个单词本身超过上限时才会在单词内部断开。
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	b := &builder{limit: c.limit}
	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.fits(para, "\n\n") {
			b.add(para, "\n\n")
			continue
		}
		b.flush()
		if runeLen(para) <= c.limit {
			b.add(para, "\n\n")
			continue
		}
		c.splitParagraph(b, para)
		b.flush()
	}
	b.flush()
	return b.chunks
}

func (c *Chunker) splitParagraph(b *builder, para string) {
	for _, sentence := range sentences(para) {
		if b.fits(sentence, " ") {
			b.add(sentence, " ")
			continue
		}
		b.flush()
		if runeLen(sentence) <= c.limit {
			b.add(sentence, " ")
			continue
		}
		for _, word := range strings.Fields(sentence) {
			if b.fits(word, " ") {
				b.add(word, " ")
				continue
			}
			b.flush()
			for _, piece := range hardSplit(word, c.limit) {
				b.add(piece, " ")
				if runeLen(piece) == c.limit {
					b.flush()
				}
			}
		}
		b.flush()
	}
}

// builder 累积当前片段
type builder struct {
	limit  int
	cur    strings.Builder
	size   int
	chunks []string
}

func (b *builder) fits(s, sep string) bool {
	n := runeLen(s)
	if b.size > 0 {
		n += runeLen(sep)
	}
	return b.size+n <= b.limit
}

func (b *builder) add(s, sep string) {
	if b.size > 0 {
		b.cur.WriteString(sep)
		b.size += runeLen(sep)
	}
	b.cur.WriteString(s)
	b.size += runeLen(s)
}

func (b *builder) flush() {
	if b.size == 0 {
		return
	}
	b.chunks = append(b.chunks, b.cur.String())
	b.cur.Reset()
	b.size = 0
}

// sentences 按句末标点切分，标点保留在句子末尾
func sentences(para string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(para[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func hardSplit(word string, limit int) []string {
	runes := []rune(word)
	var out []string
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
