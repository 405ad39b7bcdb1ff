package ziplinter

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDeflateZip writes a real archive with the standard library's writer,
// which deflates entries and emits trailing data descriptors (it cannot
// seek back to patch the local headers).
func buildDeflateZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseFile_TwoEntryDeflateArchive(t *testing.T) {
	data := buildDeflateZip(t, map[string]string{
		"a.txt":   "hello",
		"b/c.txt": "world",
	})

	archive, err := ParseFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, archive.Entries, 2)
	require.Len(t, archive.DirectoryHeaders, 2)

	byName := map[string]Entry{}
	for _, e := range archive.Entries {
		byName[e.Name] = e
	}
	require.Contains(t, byName, "a.txt")
	require.Contains(t, byName, "b/c.txt")
	assert.Equal(t, uint64(5), byName["a.txt"].UncompressedSize)
	assert.Equal(t, uint64(5), byName["b/c.txt"].UncompressedSize)
}

func TestExtractEntry_DecompressesAndMergesRanges(t *testing.T) {
	files := map[string]string{
		"a.txt":   "hello",
		"b/c.txt": "world",
	}
	data := buildDeflateZip(t, files)

	archive, err := ParseFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	for _, entry := range archive.Entries {
		var out bytes.Buffer
		extracted, err := ExtractEntry(bytes.NewReader(data), entry, &out)
		require.NoError(t, err)
		assert.Equal(t, files[entry.Name], out.String())
		archive.ParsedRanges.Append(extracted.ParsedRanges)
	}

	kinds := map[string]int{}
	for _, r := range archive.ParsedRanges.All() {
		kinds[string(r.Contains)]++
		assert.Less(t, r.Start, r.End)
		assert.LessOrEqual(t, r.End, uint64(len(data)))
	}
	assert.Equal(t, 1, kinds["end of central directory record"])
	assert.Equal(t, 2, kinds["central directory header"])
	assert.Equal(t, 2, kinds["local file header"])
	assert.Equal(t, 2, kinds["file data"])
	assert.Equal(t, 2, kinds["data descriptor"])
}

func TestExtractEntry_StoreRoundTrip(t *testing.T) {
	payload := "store round trip payload"

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "p.bin", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	data := buf.Bytes()

	archive, err := ParseFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, archive.Entries, 1)

	var out bytes.Buffer
	_, err = ExtractEntry(bytes.NewReader(data), archive.Entries[0], &out)
	require.NoError(t, err)
	assert.Equal(t, payload, out.String())
}
