package fsm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trifectatechfoundation/ziplinter/parse"
)

func driveEntry(t *testing.T, data []byte, entry parse.Entry, dst *bytes.Buffer) *EntryOutput {
	t.Helper()
	r := sliceReaderAt(data)
	e := NewEntryFsm(entry.HeaderOffset, entry, dst)

	for i := 0; i < 10000; i++ {
		result, err := e.Process()
		require.NoError(t, err)
		if result.Done {
			return result.Payload
		}

		want := e.WantsRead()
		if !want.HasOffset {
			continue
		}
		space := e.Space()
		require.NotEmpty(t, space)
		n, _ := r.ReadAt(space, int64(want.Offset))
		require.NotZero(t, n)
		e.Fill(n)
	}

	t.Fatal("entry fsm did not terminate")
	return nil
}

func TestEntryFsm_StoreEntry(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))
	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)

	var dst bytes.Buffer
	out := driveEntry(t, data, archive.Entries[0], &dst)

	assert.Equal(t, "hello\n", dst.String())
	assert.Equal(t, "a.txt", string(out.LocalHeader.NameRaw))
	assert.Nil(t, out.Aex)
}

func TestEntryFsm_Zip64Entry(t *testing.T) {
	payload := []byte("zip64 payload bytes")
	data := buildZip64Zip("big.bin", payload)
	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)

	var dst bytes.Buffer
	out := driveEntry(t, data, archive.Entries[0], &dst)

	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, "big.bin", string(out.LocalHeader.NameRaw))
}

func TestEntryFsm_AexEntrySkipsValidation(t *testing.T) {
	ciphertext := []byte("opaque ciphertext that never decrypts")
	data := buildAexZip("secret.bin", ciphertext)
	archive := driveArchive(t, data)
	require.Len(t, archive.Entries, 1)
	require.NotNil(t, archive.Entries[0].Aex)
	assert.Equal(t, uint8(3), archive.Entries[0].Aex.Mode)

	// The declared CRC is zero and what passes through is ciphertext, not
	// plaintext; an AE-x entry must parse without size or CRC errors.
	var dst bytes.Buffer
	out := driveEntry(t, data, archive.Entries[0], &dst)

	require.NotNil(t, out.Aex)
	assert.Len(t, out.Aex.Salt, 16)
	assert.Len(t, out.Aex.PasswordVerificationValue, 2)
	assert.Len(t, out.Aex.AuthenticationCode, 10)
	assert.Equal(t, ciphertext, dst.Bytes())
}

func TestEntryFsm_RecordsLocalHeaderAndFileDataRanges(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))
	archive := driveArchive(t, data)

	// Drive the machine by hand to keep a handle for reading its journal.
	var dst bytes.Buffer
	r := sliceReaderAt(data)
	e := NewEntryFsm(archive.Entries[0].HeaderOffset, archive.Entries[0], &dst)
	for {
		result, err := e.Process()
		require.NoError(t, err)
		if result.Done {
			break
		}
		want := e.WantsRead()
		if !want.HasOffset {
			continue
		}
		n, _ := r.ReadAt(e.Space(), int64(want.Offset))
		require.NotZero(t, n)
		e.Fill(n)
	}

	kinds := map[string]int{}
	for _, rg := range e.ParsedRanges().All() {
		kinds[string(rg.Contains)]++
	}
	assert.Equal(t, 1, kinds["local file header"])
	assert.Equal(t, 1, kinds["file data"])
}

func TestEntryFsm_WrongSizeFails(t *testing.T) {
	data := buildStoreZip("a.txt", []byte("hello\n"))
	archive := driveArchive(t, data)
	entry := archive.Entries[0]
	entry.UncompressedSize = 1000

	var dst bytes.Buffer
	r := sliceReaderAt(data)
	e := NewEntryFsm(entry.HeaderOffset, entry, &dst)

	var lastErr error
	for i := 0; i < 10000; i++ {
		result, err := e.Process()
		if err != nil {
			lastErr = err
			break
		}
		if result.Done {
			break
		}
		want := e.WantsRead()
		if !want.HasOffset {
			continue
		}
		n, _ := r.ReadAt(e.Space(), int64(want.Offset))
		if n == 0 {
			break
		}
		e.Fill(n)
	}

	require.Error(t, lastErr)
	assert.Contains(t, lastErr.Error(), "wrong uncompressed size")
}
