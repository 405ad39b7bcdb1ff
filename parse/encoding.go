package parse

import (
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Encoding identifies the character set used to decode names and comments
// that are not already flagged as UTF-8.
type Encoding int

const (
	Utf8 Encoding = iota
	ShiftJis
	Cp437
)

func (e Encoding) String() string {
	switch e {
	case ShiftJis:
		return "Shift-JIS"
	case Cp437:
		return "CP437"
	default:
		return "UTF-8"
	}
}

// maxDetectionFeed caps how many non-UTF-8 bytes are fed to the character
// detector.
const maxDetectionFeed = 4096

// DetectEncoding implements a Shift-JIS/CP437/UTF-8 tie-break: feed
// non-UTF-8 name+comment data to a character-set detector, then
// disambiguate a Shift-JIS guess against its common false positive (CP437
// box-drawing glyphs) using presence of bytes in the 0xB0..0xDF range.
// Samples are fed whole; once the running total reaches maxDetectionFeed
// no further sample is examined, by the detector or the suspicious-byte
// scan — both always cover exactly the same bytes.
func DetectEncoding(samples [][]byte) Encoding {
	var feed []byte
	suspiciousByteSeen := false

	for _, s := range samples {
		for _, c := range s {
			if c >= 0xB0 && c <= 0xDF {
				suspiciousByteSeen = true
			}
		}
		feed = append(feed, s...)
		if len(feed) >= maxDetectionFeed {
			break
		}
	}

	if len(feed) == 0 {
		return Utf8
	}

	result, err := chardet.NewTextDetector().DetectBest(feed)
	if err != nil || result == nil {
		return Cp437
	}

	switch result.Charset {
	case "Shift_JIS":
		if suspiciousByteSeen {
			return ShiftJis
		}
		return Cp437
	case "UTF-8":
		return Utf8
	default:
		return Cp437
	}
}

// Decode converts raw bytes in the given encoding to a Go string.
func Decode(raw []byte, enc Encoding) (string, error) {
	switch enc {
	case ShiftJis:
		out, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case Cp437:
		out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return string(raw), nil
	}
}
