package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFences_LeadInAndLanguage(t *testing.T) {
	input := "Intro text\n\nCreate `app.js`:\n```JS app.js\nconsole.log(1);\n```\nBetween\n```\nplain\n```\n"

	fences := ScanFences(input)
	require.Len(t, fences, 2)

	assert.Equal(t, 0, fences[0].Index)
	assert.Equal(t, "JS app.js", fences[0].Info)
	assert.Equal(t, "js", fences[0].Language)
	assert.Equal(t, "console.log(1);", fences[0].Body)
	assert.Equal(t, "Create `app.js`:", fences[0].LeadIn)

	assert.Equal(t, 1, fences[1].Index)
	assert.Equal(t, "", fences[1].Language)
	assert.Equal(t, "Between", fences[1].LeadIn)
}

func TestScanFences_LeadInResetsAfterFence(t *testing.T) {
	input := "Create a.js:\n```js\na\n```\n```js\nb\n```\n"

	fences := ScanFences(input)
	require.Len(t, fences, 2)
	assert.Equal(t, "Create a.js:", fences[0].LeadIn)
	assert.Equal(t, "", fences[1].LeadIn)
}

func TestScanFences_UnclosedDropped(t *testing.T) {
	fences := ScanFences("```go\npackage main\n")
	assert.Empty(t, fences)
}

func TestScanFences_InlineTripleBackticksIgnored(t *testing.T) {
	fences := ScanFences("Use ```code``` for blocks.\n```go\nx\n```")
	require.Len(t, fences, 1)
	assert.Equal(t, "Use ```code``` for blocks.", fences[0].LeadIn)
}

func TestScanFences_AttributeHeaderHasNoLanguage(t *testing.T) {
	fences := ScanFences("```file=.orc/config.yaml\nname: test\n```")
	require.Len(t, fences, 1)
	assert.Equal(t, "", fences[0].Language)
}

func TestScanFences_CRLF(t *testing.T) {
	fences := ScanFences("```js app.js\r\nx\r\n```\r\n")
	require.Len(t, fences, 1)
	assert.Equal(t, "x", fences[0].Body)
}
