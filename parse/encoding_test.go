package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Cp437(t *testing.T) {
	// 0xE0 is alpha, 0xB0 a shade block in code page 437.
	s, err := Decode([]byte{'a', 0xE0, 0xB0}, Cp437)
	require.NoError(t, err)
	assert.Equal(t, "aα░", s)
}

func TestDecode_ShiftJis(t *testing.T) {
	// 0x83 0x65 is katakana TE in Shift-JIS.
	s, err := Decode([]byte{0x83, 0x65}, ShiftJis)
	require.NoError(t, err)
	assert.Equal(t, "テ", s)
}

func TestDecode_Utf8PassesThrough(t *testing.T) {
	s, err := Decode([]byte("日本語.txt"), Utf8)
	require.NoError(t, err)
	assert.Equal(t, "日本語.txt", s)
}

func TestDetectEncoding_EmptyFeedIsUtf8(t *testing.T) {
	assert.Equal(t, Utf8, DetectEncoding(nil))
	assert.Equal(t, Utf8, DetectEncoding([][]byte{{}, {}}))
}

func TestDetectEncoding_SuspiciousBytesWithinCapPickShiftJis(t *testing.T) {
	// 0x82 0xB0 is hiragana GE in Shift-JIS; the 0xB0 trail byte is in
	// the kana-lead range that tips a Shift-JIS guess away from the CP437
	// false positive.
	feed := bytes.Repeat([]byte{0x82, 0xB0}, 64)

	assert.Equal(t, ShiftJis, DetectEncoding([][]byte{feed}))
}

func TestDetectEncoding_SuspiciousByteScanStopsAtFeedCap(t *testing.T) {
	// 0x82 0xA0 is hiragana A in Shift-JIS: a valid double-byte pair with
	// lead and trail both outside 0xB0..0xDF. Enough of them fill the
	// detection cap exactly, so the 0xB0 bytes in the second sample must
	// never be examined: the detector guesses Shift-JIS but without any
	// suspicious byte in the capped window the tie-break lands on CP437.
	head := bytes.Repeat([]byte{0x82, 0xA0}, maxDetectionFeed/2)
	tail := bytes.Repeat([]byte{0x82, 0xB0}, 16)

	assert.Equal(t, Cp437, DetectEncoding([][]byte{head, tail}))
}
