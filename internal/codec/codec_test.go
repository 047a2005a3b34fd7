package codec

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleChunk(t *testing.T) {
	d := NewDecoder()
	out, err := d.Write([]byte(`[{"name":"acme"}]`), true)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"acme"}]`, out)
	assert.Zero(t, d.Pending())
}

func TestDecodeMultiByteSplitAcrossChunks(t *testing.T) {
	// "€" = E2 82 AC，拆在两个块里
	full := `{"price":"€10"}`
	raw := []byte(full)
	cut := strings.Index(full, "€") + 1 // 多字节序列中间

	d := NewDecoder()
	first, err := d.Write(raw[:cut], false)
	require.NoError(t, err)
	assert.NotContains(t, first, "�")
	assert.Positive(t, d.Pending())

	second, err := d.Write(raw[cut:], true)
	require.NoError(t, err)
	assert.Equal(t, full, first+second)
	assert.Zero(t, d.Pending())
}

func TestDecodeTruncatedSequenceFlushedOnFinal(t *testing.T) {
	d := NewDecoder()
	// E2 82 是被截断的 "€"，流结束时必须以替换符冲刷而不是报错
	out, err := d.Write([]byte{'a', 0xE2, 0x82}, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "a"))
	assert.Contains(t, out, "�")
	assert.True(t, utf8.ValidString(out))
}

func TestDecodeHeldBytesNotFlushedMidStream(t *testing.T) {
	d := NewDecoder()
	out, err := d.Write([]byte{0xE2}, false)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, d.Pending())
}

func TestDecodeEmptyChunk(t *testing.T) {
	d := NewDecoder()
	out, err := d.Write(nil, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEncodeRoundTrip(t *testing.T) {
	text := `[{"permissions":{"attendance":{"approve":true}}},{"name":"Compañía"}]`
	assert.Equal(t, []byte(text), Encode(text))
}
