// Package extract implements the "extract" CLI subcommand: decompress
// every entry of one or more ZIP archives to disk, validating size and
// CRC as it goes.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/trifectatechfoundation/ziplinter"
	"github.com/trifectatechfoundation/ziplinter/internal"
	"github.com/trifectatechfoundation/ziplinter/internal/executor"
	"github.com/trifectatechfoundation/ziplinter/util"
	"golang.org/x/time/rate"
)

// Command implements flags.Commander for `ziplinter extract`.
type Command struct {
	OutDir      string `short:"o" long:"out" description:"destination directory" default:"."`
	Concurrency int    `short:"c" long:"concurrency" description:"number of entries to extract concurrently per archive" default:"4"`
	RateLimit   int64  `long:"rate-limit" description:"maximum bytes/sec written across all entries of an archive (0 disables the limit)" default:"0"`
	NoProgress  bool   `long:"no-progress" description:"suppress the progress bar"`

	Args struct {
		Files []string `positional-arg-name:"file" description:"ZIP archives to extract"`
	} `positional-args:"yes" required:"1"`
}

func (c *Command) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := len(c.Args.Files)
	for i, name := range c.Args.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ectx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, name))
		if err := c.extractOne(ectx, name); err != nil {
			return fmt.Errorf("%sextract error: %w", internal.MustPrefix(ectx), err)
		}
	}
	return nil
}

func (c *Command) extractOne(ctx context.Context, name string) error {
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

	stem, _ := util.StemAndExt(filepath.Base(name))
	root, err := util.MkExclDir(c.OutDir, stem, 0o755)
	if err != nil {
		return fmt.Errorf("create destination directory error: %w", err)
	}

	logger.Printf("extracting %d entries to %s", len(archive.Entries), util.DirBase(root))

	var totalUncompressed int64
	for _, entry := range archive.Entries {
		totalUncompressed += int64(entry.UncompressedSize)
	}

	var bar *progressbar.ProgressBar
	if !c.NoProgress {
		bar = internal.DefaultBytes(totalUncompressed, internal.MustPrefix(ctx)+"extracting")
		defer bar.Close()
	}

	// A shared limiter throttles the combined write rate across every
	// concurrently-extracted entry, rather than per entry, so -c and
	// --rate-limit compose the way an operator would expect.
	var limiter *rate.Limiter
	if c.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.RateLimit), int(c.RateLimit))
	}

	var wg sync.WaitGroup
	var extracted, failed int64
	ex := executor.NewCallerRunsOnFullExecutor(c.Concurrency)
	defer ex.Close()

	for _, entry := range archive.Entries {
		if ctx.Err() != nil {
			break
		}

		entry := entry
		wg.Add(1)
		if err := ex.Execute(func() {
			defer wg.Done()
			if err := extractEntry(ctx, f, entry, root, limiter, bar); err != nil {
				atomic.AddInt64(&failed, 1)
				logger.Printf("%q: %s", entry.Name, err)
				return
			}
			atomic.AddInt64(&extracted, 1)
		}); err != nil {
			wg.Done()
			return fmt.Errorf("schedule entry %q error: %w", entry.Name, err)
		}
	}
	wg.Wait()

	logger.Printf("%d extracted, %d failed (%s total)", extracted, failed, humanize.Bytes(uint64(fi.Size())))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func extractEntry(ctx context.Context, f *os.File, entry ziplinter.Entry, root string, limiter *rate.Limiter, bar *progressbar.ProgressBar) error {
	dest := filepath.Join(root, filepath.FromSlash(entry.Name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory error: %w", err)
	}

	// Exclusive creation sidesteps clobbering when an archive carries
	// duplicate entry names; collisions get a numeric suffix.
	stem, ext := util.StemAndExt(filepath.Base(dest))
	out, err := util.OpenExclFile(filepath.Dir(dest), stem, ext, 0o644)
	if err != nil {
		return fmt.Errorf("create file error: %w", err)
	}
	defer out.Close()

	var size util.Sizer
	var dst io.Writer = io.MultiWriter(out, &size)
	if bar != nil {
		dst = io.MultiWriter(dst, bar)
	}
	if limiter != nil {
		dst = &rateLimitedWriter{ctx: ctx, w: dst, limiter: limiter}
	}

	if _, err = ziplinter.ExtractEntry(f, entry, dst); err != nil {
		return err
	}
	if size.Size != int64(entry.UncompressedSize) {
		return fmt.Errorf("extracted %d bytes, expected %d", size.Size, entry.UncompressedSize)
	}
	return nil
}

// rateLimitedWriter throttles Write calls against a shared token bucket,
// chunking each call to the bucket's burst size since Limiter.WaitN
// rejects requests larger than its burst.
type rateLimitedWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

func (r *rateLimitedWriter) Write(p []byte) (int, error) {
	burst := r.limiter.Burst()
	written := 0
	for len(p) > 0 {
		chunk := len(p)
		if chunk > burst {
			chunk = burst
		}
		if err := r.limiter.WaitN(r.ctx, chunk); err != nil {
			return written, fmt.Errorf("rate limit error: %w", err)
		}
		n, err := r.w.Write(p[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		p = p[chunk:]
	}
	return written, nil
}
