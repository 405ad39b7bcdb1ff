// Package inspect implements the "inspect" CLI subcommand: parse one or
// more ZIP archives and print their forensic inventory as JSON.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/trifectatechfoundation/ziplinter"
	"github.com/trifectatechfoundation/ziplinter/internal"
)

// Command implements flags.Commander for `ziplinter inspect`.
type Command struct {
	Args struct {
		Files []string `positional-arg-name:"file" description:"ZIP archives to inspect"`
	} `positional-args:"yes" required:"1"`
}

// report is the stable-named JSON record emitted for one archive.
type report struct {
	Name         string        `json:"name"`
	Size         uint64        `json:"size"`
	Comment      string        `json:"comment,omitempty"`
	Encoding     string        `json:"encoding"`
	Entries      []entryReport `json:"entries"`
	ParsedRanges any           `json:"parsedRanges"`
}

type entryReport struct {
	Name             string `json:"name"`
	Method           uint16 `json:"method"`
	CompressedSize   uint64 `json:"compressedSize"`
	UncompressedSize uint64 `json:"uncompressedSize"`
	CRC32            uint32 `json:"crc32"`
	HeaderOffset     uint64 `json:"headerOffset"`
	Modified         string `json:"modified"`
	Aex              bool   `json:"aex,omitempty"`
}

func (c *Command) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := len(c.Args.Files)
	for i, name := range c.Args.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ictx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, name))
		if err := inspectOne(ictx, name); err != nil {
			return fmt.Errorf("%sinspect error: %w", internal.MustPrefix(ictx), err)
		}
	}
	return nil
}

func inspectOne(ctx context.Context, name string) error {
	logger := internal.MustLogger(ctx)

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("open file error: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file error: %w", err)
	}

	archive, err := ziplinter.ParseFile(f, fi.Size())
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	logger.Printf("%d entries, %s", len(archive.Entries), humanize.Bytes(uint64(fi.Size())))

	r := report{
		Name:         name,
		Size:         archive.Size,
		Comment:      archive.Comment,
		Encoding:     archive.Encoding.String(),
		ParsedRanges: archive.ParsedRanges.All(),
	}
	for _, e := range archive.Entries {
		r.Entries = append(r.Entries, entryReport{
			Name:             e.Name,
			Method:           uint16(e.Method),
			CompressedSize:   e.CompressedSize,
			UncompressedSize: e.UncompressedSize,
			CRC32:            e.CRC32,
			HeaderOffset:     e.HeaderOffset,
			Modified:         e.Modified.UTC().Format(time.RFC3339),
			Aex:              e.Aex != nil,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
