package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type     string `json:"type"`
	Progress int    `json:"progress"`
}

func TestEncode(t *testing.T) {
	out, err := Encode(frame{Type: "message", Progress: 40})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"message\",\"progress\":40}\n\n", string(out))

	_, err = Encode(func() {})
	assert.Error(t, err)
}

func TestParserToleratesSplitFrames(t *testing.T) {
	stream := "data: {\"type\":\"message\",\"progress\":10}\n\ndata: {\"type\":\"complete\",\"progress\":100}\n\n"

	for cut := 1; cut < len(stream); cut++ {
		var p Parser
		got := append(p.Feed([]byte(stream[:cut])), p.Feed([]byte(stream[cut:]))...)
		got = append(got, p.Flush()...)
		require.Len(t, got, 2, "cut at %d", cut)
		assert.JSONEq(t, `{"type":"complete","progress":100}`, string(got[1]))
	}
}

func TestParserSkipsBrokenJSON(t *testing.T) {
	var p Parser
	got := p.Feed([]byte("data: {\"type\":\"mess\n\ndata: {\"type\":\"error\"}\n\n"))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"type":"error"}`, string(got[0]))
	assert.Equal(t, 1, p.Skipped())
}

func TestParserHandlesCRLFAndComments(t *testing.T) {
	var p Parser
	got := p.Feed([]byte(": keepalive\r\nevent: message\r\ndata: {\"progress\":5}\r\n\r\n"))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"progress":5}`, string(got[0]))
}

func TestParserFlushWithoutTrailingBlankLine(t *testing.T) {
	var p Parser
	assert.Empty(t, p.Feed([]byte("data: {\"type\":\"complete\"}")))
	got := p.Flush()
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"type":"complete"}`, string(got[0]))
}

func TestDecoderReadsOneByteAtATime(t *testing.T) {
	var buf bytes.Buffer
	for i := 1; i <= 3; i++ {
		require.NoError(t, WriteFrame(&buf, frame{Type: "message", Progress: i * 10}))
	}
	dec := NewDecoder(iotest.OneByteReader(&buf))

	var progress []int
	for {
		var f frame
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		progress = append(progress, f.Progress)
	}
	assert.Equal(t, []int{10, 20, 30}, progress)
	assert.Zero(t, dec.Skipped())
}

func TestDecoderSurfacesReadErrors(t *testing.T) {
	dec := NewDecoder(iotest.ErrReader(errors.New("boom")))
	_, err := dec.Next()
	assert.EqualError(t, err, "boom")

	dec = NewDecoder(strings.NewReader(""))
	var raw json.RawMessage
	assert.ErrorIs(t, dec.Decode(&raw), io.EOF)
}
