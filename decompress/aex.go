package decompress

import (
	"fmt"

	"github.com/trifectatechfoundation/ziplinter/parse"
	"github.com/trifectatechfoundation/ziplinter/zerr"
)

// Data is the side data captured from an AE-x stream as it passes through:
// salt, the 2-byte password verification value, and the 10-byte trailing
// authentication code (MAC). None of it is used to decrypt; the engine
// only recognizes the framing.
type Data struct {
	Salt                      []byte
	PasswordVerificationValue []byte
	AuthenticationCode        []byte
}

const aexVerifierSize = 2
const aexTrailerSize = 10

// aexDecompressor does not decrypt. It recognizes AE-x framing
// (salt/verifier/MAC) and passes the remaining ciphertext through
// verbatim so the driving EntryFsm's byte accounting still advances to
// entry.compressed_size. Validation (size/CRC) must be skipped by the
// caller whenever the entry is AE-x.
//
// It always consumes everything it's handed, holding back up to
// aexTrailerSize bytes internally until it can tell them apart from
// genuine ciphertext: the true trailing MAC is only distinguishable
// from ciphertext once the caller reports hasMoreInput=false, and the
// caller's own output buffer may be too small to drain everything in
// one call, so bytes can sit held back across several calls.
type aexDecompressor struct {
	saltSize int
	captured bool
	Data     Data

	pending []byte
}

func newAexDecompressor(aex *parse.AexExtra) (*aexDecompressor, error) {
	var saltSize int
	switch aex.Mode {
	case 1:
		saltSize = 8
	case 2:
		saltSize = 12
	case 3:
		saltSize = 16
	default:
		return nil, &zerr.FormatError{Kind: zerr.InvalidExtraField, Cause: fmt.Errorf("unrecognized aex mode %d", aex.Mode)}
	}
	return &aexDecompressor{saltSize: saltSize}, nil
}

// AexData returns the salt/verifier/MAC captured so far. Callers should
// only rely on AuthenticationCode being populated after the decompressor
// has observed hasMoreInput=false.
func (d *aexDecompressor) AexData() Data {
	return d.Data
}

func (d *aexDecompressor) Decompress(in []byte, out []byte, hasMoreInput bool) (Outcome, error) {
	// Everything offered this call is absorbed into pending; what gets
	// released to out is decided below, independent of len(in), so a
	// small feed or a small out buffer only delays release across later
	// calls instead of miscounting what was consumed.
	d.pending = append(d.pending, in...)

	if !d.captured {
		if len(d.pending) < d.saltSize+aexVerifierSize {
			return Outcome{BytesRead: len(in)}, nil
		}
		d.Data.Salt = append([]byte(nil), d.pending[:d.saltSize]...)
		d.Data.PasswordVerificationValue = append([]byte(nil), d.pending[d.saltSize:d.saltSize+aexVerifierSize]...)
		d.pending = append([]byte(nil), d.pending[d.saltSize+aexVerifierSize:]...)
		d.captured = true
	}

	// The last aexTrailerSize bytes of pending always stay held back,
	// since they could still turn out to be the real trailer; once
	// hasMoreInput is false no further bytes will ever arrive to push
	// them out of that window, so whatever is left once everything else
	// has drained is the trailer itself.
	releasable := len(d.pending) - aexTrailerSize
	if releasable < 0 {
		releasable = 0
	}

	n := min(releasable, len(out))
	copy(out[:n], d.pending[:n])
	d.pending = append([]byte(nil), d.pending[n:]...)

	if !hasMoreInput && len(d.pending) <= aexTrailerSize {
		d.Data.AuthenticationCode = append([]byte(nil), d.pending...)
	}

	return Outcome{BytesRead: len(in), BytesWritten: n}, nil
}
