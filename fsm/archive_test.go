package fsm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trifectatechfoundation/ziplinter/parse"
)

func driveArchive(t *testing.T, data []byte) *Archive {
	t.Helper()
	r := sliceReaderAt(data)
	a := NewArchiveFsm(uint64(len(data)))

	for i := 0; i < 10000; i++ {
		result, err := a.Process()
		require.NoError(t, err)
		if result.Done {
			return result.Payload
		}

		want := a.WantsRead()
		if !want.HasOffset {
			continue
		}
		space := a.Space()
		require.NotEmpty(t, space)
		n, _ := r.ReadAt(space, int64(want.Offset))
		require.NotZero(t, n)
		a.Fill(n)
	}

	t.Fatal("archive fsm did not terminate")
	return nil
}

func TestArchiveFsm_SingleStoreEntry(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))

	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)
	assert.Equal(t, "a.txt", archive.Entries[0].Name)
	assert.Equal(t, uint64(6), archive.Entries[0].UncompressedSize)
	assert.Equal(t, uint32(0x363A3020), archive.Entries[0].CRC32)
}

func TestArchiveFsm_RecordsEocdAndCentralDirectoryRanges(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))

	archive := driveArchive(t, data)
	all := archive.ParsedRanges.All()
	require.Len(t, all, 2)
	assert.Equal(t, "end of central directory record", string(all[0].Contains))
	assert.Equal(t, "central directory header", string(all[1].Contains))
}

func TestArchiveFsm_AllRangesWithinFile(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))

	archive := driveArchive(t, data)
	for _, r := range archive.ParsedRanges.All() {
		assert.Less(t, r.Start, r.End)
		assert.LessOrEqual(t, r.End, uint64(len(data)))
	}
}

func TestArchiveFsm_ArchiveCommentDoesNotInfluenceEncodingDetection(t *testing.T) {
	// The entry name is valid Shift-JIS (repeated hiragana A, 0x82 0xA0)
	// with no byte in 0xB0..0xDF, so header bytes alone tie-break to
	// CP437. The archive comment is full of 0xB0 trail bytes; were it fed
	// to the detector the tie-break would flip to Shift-JIS. Only header
	// name/comment bytes may drive detection.
	name := strings.Repeat("\x82\xa0", 20) + ".txt"
	comment := bytes.Repeat([]byte{0x82, 0xB0}, 32)
	data := buildStoreZipWithComment(name, []byte("hello\n"), comment)

	archive := driveArchive(t, data)
	assert.Equal(t, parse.Cp437, archive.Encoding)
}

func TestArchiveFsm_CommentWithEmbeddedEocdSignature(t *testing.T) {
	// The red herring: the archive comment starts with the EOCD signature
	// bytes followed by junk. The end-anchored scan must still locate the
	// real record because the herring's comment-length field does not
	// reach end-of-file.
	comment := append([]byte{0x50, 0x4b, 0x05, 0x06}, []byte(" junk that is not a record")...)
	data := buildStoreZipWithComment("a.txt", []byte("hello\n"), comment)

	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)
	assert.Equal(t, string(comment), archive.Comment)
}

func TestArchiveFsm_Zip64LocatorAndRecord(t *testing.T) {
	payload := []byte("zip64 payload bytes")
	data := buildZip64Zip("big.bin", payload)

	archive := driveArchive(t, data)
	require.NotNil(t, archive.Eocd64)
	require.NotNil(t, archive.Locator)
	require.Len(t, archive.Entries, 1)
	assert.Equal(t, uint64(len(payload)), archive.Entries[0].CompressedSize)
	assert.Equal(t, uint64(len(payload)), archive.Entries[0].UncompressedSize)
	assert.Equal(t, uint64(0), archive.Entries[0].HeaderOffset)

	kinds := map[string]int{}
	for _, r := range archive.ParsedRanges.All() {
		kinds[string(r.Contains)]++
	}
	assert.Equal(t, 1, kinds["end of central directory record"])
	assert.Equal(t, 1, kinds["zip64 end of central directory locator"])
	assert.Equal(t, 1, kinds["zip64 end of central directory record"])
	assert.Equal(t, 1, kinds["central directory header"])
}

func TestArchiveFsm_SelfExtractingPrefix(t *testing.T) {
	// A stub prefix shifts every offset declared inside the archive; the
	// gap between the declared directory end and where the EOCD actually
	// sits reveals the prefix length.
	prefix := []byte("#!/bin/sh stub that is not zip data at all\n")
	data := append(prefix, buildStoreZip("a.txt", []byte("hello\n"))...)

	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)
	assert.Equal(t, uint64(len(prefix)), archive.GlobalOffset)
	assert.Equal(t, uint64(len(prefix)), archive.Entries[0].HeaderOffset)

	var dst bytes.Buffer
	out := driveEntry(t, data, archive.Entries[0], &dst)
	assert.Equal(t, "hello\n", dst.String())
	assert.Equal(t, "a.txt", string(out.LocalHeader.NameRaw))
}

func TestArchiveFsm_EmptyArchive(t *testing.T) {
	// A bare EOCD declaring zero entries is the smallest valid archive.
	data := buildStoreZip("a.txt", []byte("hello\n"))
	data = data[len(data)-22:]
	data[8], data[9] = 0, 0   // disk records
	data[10], data[11] = 0, 0 // total records
	data[12], data[13], data[14], data[15] = 0, 0, 0, 0 // directory size
	data[16], data[17], data[18], data[19] = 0, 0, 0, 0 // directory offset

	archive := driveArchive(t, data)
	assert.Empty(t, archive.Entries)
	assert.Equal(t, "UTF-8", archive.Encoding.String())
}

func TestArchiveFsm_EntryCountMismatchFails(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))
	// EOCD total-records field sits 12 bytes before end of file (no
	// comment): tamper it to declare two entries.
	data[len(data)-12] = 2

	r := sliceReaderAt(data)
	a := NewArchiveFsm(uint64(len(data)))

	var lastErr error
	for i := 0; i < 10000; i++ {
		result, err := a.Process()
		if err != nil {
			lastErr = err
			break
		}
		if result.Done {
			break
		}
		want := a.WantsRead()
		if !want.HasOffset {
			continue
		}
		n, _ := r.ReadAt(a.Space(), int64(want.Offset))
		if n == 0 {
			break
		}
		a.Fill(n)
	}

	require.Error(t, lastErr)
	assert.Contains(t, lastErr.Error(), "invalid central directory record")
}
