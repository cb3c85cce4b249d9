// Package sse 编解码 "data: <JSON>\n\n" 格式的服务端推送帧
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ContentType SSE 响应类型
const ContentType = "text/event-stream"

var dataPrefix = []byte("data:")

// Encode 将 v 编码为一帧
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// WriteFrame 编码并写出一帧
func WriteFrame(w io.Writer, v any) error {
	frame, err := Encode(v)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Parser 增量解析字节流，数据可以在任意位置被截断
type Parser struct {
	line    []byte
	data    [][]byte
	skipped int
}

// Skipped 因 JSON 不完整或非法被丢弃的帧数
func (p *Parser) Skipped() int { return p.skipped }

// Feed 追加一段字节，返回其中已完整的帧载荷
func (p *Parser) Feed(chunk []byte) []json.RawMessage {
	var out []json.RawMessage
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			p.line = append(p.line, chunk...)
			break
		}
		p.line = append(p.line, chunk[:i]...)
		chunk = chunk[i+1:]
		if msg, ok := p.handleLine(bytes.TrimSuffix(p.line, []byte("\r"))); ok {
			out = append(out, msg)
		}
		p.line = p.line[:0]
	}
	return out
}

// Flush 输入结束时处理残留数据
func (p *Parser) Flush() []json.RawMessage {
	var out []json.RawMessage
	if len(p.line) > 0 {
		if msg, ok := p.handleLine(p.line); ok {
			out = append(out, msg)
		}
		p.line = p.line[:0]
	}
	if msg, ok := p.dispatch(); ok {
		out = append(out, msg)
	}
	return out
}

func (p *Parser) handleLine(line []byte) (json.RawMessage, bool) {
	if len(line) == 0 {
		return p.dispatch()
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		// event:/id:/注释行不携带载荷
		return nil, false
	}
	value := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
	p.data = append(p.data, append([]byte(nil), value...))
	return nil, false
}

// dispatch 空行结束一帧，多行 data 以换行拼接
func (p *Parser) dispatch() (json.RawMessage, bool) {
	if len(p.data) == 0 {
		return nil, false
	}
	payload := bytes.Join(p.data, []byte("\n"))
	p.data = p.data[:0]
	if !json.Valid(payload) {
		p.skipped++
		return nil, false
	}
	return json.RawMessage(payload), true
}

// Decoder 从 io.Reader 逐帧读取
type Decoder struct {
	r      io.Reader
	parser Parser
	queue  []json.RawMessage
	buf    []byte
	eof    bool
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 4096)}
}

// Next 返回下一帧载荷，流结束时返回 io.EOF
func (d *Decoder) Next() (json.RawMessage, error) {
	for len(d.queue) == 0 {
		if d.eof {
			return nil, io.EOF
		}
		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.queue = append(d.queue, d.parser.Feed(d.buf[:n])...)
		}
		if errors.Is(err, io.EOF) {
			d.eof = true
			d.queue = append(d.queue, d.parser.Flush()...)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	msg := d.queue[0]
	d.queue = d.queue[1:]
	return msg, nil
}

// Decode 读取下一帧并反序列化到 v
func (d *Decoder) Decode(v any) error {
	msg, err := d.Next()
	if err != nil {
		return err
	}
	return json.Unmarshal(msg, v)
}

// Skipped 被丢弃的非法帧数
func (d *Decoder) Skipped() int { return d.parser.Skipped() }
