package topics

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "script-studio-api/pkg/errors"
)

func TestExtract_LabeledColon(t *testing.T) {
	text := `Estrutura do documentário

TÓPICO 1: A origem
Como tudo começou.

TÓPICO 2: O auge
O período de maior influência.

TÓPICO 3: A queda
O declínio final.`

	res, err := NewExtractor(0).Extract(text, 3)
	require.NoError(t, err)

	assert.Equal(t, "labeled-colon", res.Pattern)
	require.Len(t, res.Blocks, 3)
	for i, b := range res.Blocks {
		assert.True(t, strings.HasPrefix(b, fmt.Sprintf("TÓPICO %d:", i+1)), b)
		assert.NotEmpty(t, strings.TrimSpace(b))
	}
	assert.Contains(t, res.Blocks[0], "Como tudo começou.")
	assert.NotContains(t, res.Blocks[0], "Estrutura do documentário")
}

func TestExtract_ColonIsCaseAndAccentInsensitive(t *testing.T) {
	text := "**Tópico 1:** um\n**topico 2:** dois\n## CURIOSIDADE 3: três\nAto 4: quatro"

	res, err := NewExtractor(0).Extract(text, 4)
	require.NoError(t, err)
	assert.Equal(t, "labeled-colon", res.Pattern)
	assert.Equal(t, []string{"**Tópico 1:** um", "**topico 2:** dois", "## CURIOSIDADE 3: três", "Ato 4: quatro"}, res.Blocks)
}

func TestExtract_InlineMarkers(t *testing.T) {
	text := "Estrutura: TÓPICO 1: A origem do caso. TÓPICO 2: O auge da marca. TÓPICO 3: O declínio final."

	res, err := NewExtractor(0).Extract(text, 3)
	require.NoError(t, err)
	assert.Equal(t, "labeled-colon", res.Pattern)
	assert.Equal(t, []string{
		"TÓPICO 1: A origem do caso.",
		"TÓPICO 2: O auge da marca.",
		"TÓPICO 3: O declínio final.",
	}, res.Blocks)
}

func TestExtract_InlineHyphenMarkers(t *testing.T) {
	text := "Curiosidade 1 - polvos têm três corações; Curiosidade 2 - o mel não estraga"

	blocks := LabeledHyphen().Split(text, 2)
	assert.Equal(t, []string{"Curiosidade 1 - polvos têm três corações;", "Curiosidade 2 - o mel não estraga"}, blocks)
}

func TestExtract_TruncatesToExpected(t *testing.T) {
	text := "TÓPICO 1: a\nTÓPICO 2: b\nTÓPICO 3: c\nTÓPICO 4: d"

	res, err := NewExtractor(0).Extract(text, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Detected)
	assert.Equal(t, []string{"TÓPICO 1: a", "TÓPICO 2: b"}, res.Blocks)
}

func TestExtract_FallsBackToHyphen(t *testing.T) {
	text := "Curiosidade 1 - o polvo tem três corações\nCuriosidade 2 – o mel não estraga\nCuriosidade 3 — bananas são bagas"

	res, err := NewExtractor(0).Extract(text, 3)
	require.NoError(t, err)
	assert.Equal(t, "labeled-hyphen", res.Pattern)
	assert.Len(t, res.Blocks, 3)
}

func TestExtract_LeadingNumberNeedsEnoughMarkers(t *testing.T) {
	text := "Plano:\n1. Introdução ao tema\n2. Desenvolvimento\n3. Conclusão"

	res, err := NewExtractor(0).Extract(text, 3)
	require.NoError(t, err)
	assert.Equal(t, "leading-number", res.Pattern)
	assert.Equal(t, "1. Introdução ao tema", res.Blocks[0])

	assert.Nil(t, LeadingNumber().Split(text, 4))
}

func TestExtract_MarkdownHeading(t *testing.T) {
	text := "# Roteiro\n\n## Tópico sobre o início\nTexto A\n\n## Tópico sobre o meio\nTexto B"

	res, err := NewExtractor(0).Extract(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "markdown-heading", res.Pattern)
	assert.Equal(t, "## Tópico sobre o início\nTexto A", res.Blocks[0])
}

func TestExtract_LargeParagraphFallback(t *testing.T) {
	long := strings.Repeat("palavra ", 40)
	text := "curto\n\n" + long + "\n\n" + long + "\n  \n" + "também curto"

	res, err := NewExtractor(100).Extract(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "large-paragraphs", res.Pattern)
	assert.Len(t, res.Blocks, 2)
}

func TestExtract_MismatchIsDiagnostic(t *testing.T) {
	text := "TÓPICO 1: apenas um tópico aqui.\nNada mais."

	_, err := NewExtractor(0).Extract(text, 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Detected)
	assert.Equal(t, "labeled-colon", mismatch.BestPattern)
	assert.Equal(t, "large-paragraphs", mismatch.Pattern)
	assert.Contains(t, mismatch.Head, "TÓPICO 1")
	assert.Contains(t, err.Error(), "expected 3")
	assert.Contains(t, err.Error(), "detected 1")
}

func TestExtract_MismatchReportsClosestStrategy(t *testing.T) {
	text := "TÓPICO 1: a origem.\nTÓPICO 2: o auge.\nCuriosidade 3 - a queda."

	_, err := NewExtractor(0).Extract(text, 4)
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Detected)
	assert.Equal(t, "labeled-colon", mismatch.BestPattern)
	assert.Equal(t, "large-paragraphs", mismatch.Pattern)
	assert.Contains(t, mismatch.Error(), "best pattern: labeled-colon")
}

func TestExtract_PreviewsAreTruncated(t *testing.T) {
	text := "INICIO" + strings.Repeat("x", 2000) + "FIM"

	_, err := NewExtractor(5000).Extract(text, 2)
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.True(t, strings.HasPrefix(mismatch.Head, "INICIO"))
	assert.True(t, strings.HasSuffix(mismatch.Tail, "FIM"))
	assert.Less(t, len([]rune(mismatch.Head)), 400)
}

func TestExtract_InvalidCount(t *testing.T) {
	_, err := NewExtractor(0).Extract("TÓPICO 1: a", 0)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))
}

func TestMarkerStrategy_DropsHeadingOnlyFragments(t *testing.T) {
	blocks := LabeledColon().Split("TÓPICO 1:\n\nTÓPICO 2: conteúdo", 2)
	assert.Equal(t, []string{"TÓPICO 2: conteúdo"}, blocks)
}
