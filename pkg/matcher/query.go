package matcher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/screa/entropy-audit/internal/logger"
)

const cancelCheckEvery = 4096

// QueryOptions configures QueryStream.
type QueryOptions struct {
	// ResumeFrom is the number of leading lines to skip, as reported by a
	// previous run's QueryStats.NextLine.
	ResumeFrom int64
	Column     int
	Validate   func(addr string) error
}

// Match is a positive answer from the index for one streamed row.
type Match struct {
	Line    int64
	Address string
	Row     string
}

// QueryStats summarises a bulk query. NextLine is the offset to resume from.
type QueryStats struct {
	Queried   int64
	Malformed int64
	Positives int64
	NextLine  int64
}

// QueryStream tests every row of r against the index and calls emit for each
// positive. Malformed rows are logged and skipped. On cancellation the
// returned stats still carry the resume offset.
func (ix *Index) QueryStream(ctx context.Context, r io.Reader, opts QueryOptions, log *logger.Logger, emit func(Match) error) (QueryStats, error) {
	var stats QueryStats
	stats.NextLine = opts.ResumeFrom
	if opts.ResumeFrom > 0 {
		log.Printf("Resuming bulk query after line %s", humanize.Comma(opts.ResumeFrom))
	}

	_, err := eachLine(r, opts.ResumeFrom, func(lineNo int64, line string) error {
		if lineNo%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := ix.queryLine(lineNo, line, opts, &stats, log, emit); err != nil {
			return err
		}
		stats.NextLine = lineNo
		return nil
	})
	return stats, err
}

func (ix *Index) queryLine(lineNo int64, line string, opts QueryOptions, stats *QueryStats, log *logger.Logger, emit func(Match) error) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	addr, err := parseChecked(line, opts.Column, opts.Validate)
	if err != nil {
		stats.Malformed++
		log.Printf("Skipping input line %d: %v", lineNo, err)
		return nil
	}
	if isHeader(lineNo, addr) {
		return nil
	}

	stats.Queried++
	if !ix.Contains(addr) {
		return nil
	}
	stats.Positives++
	if err := emit(Match{Line: lineNo, Address: addr, Row: strings.TrimRight(line, "\r\n")}); err != nil {
		return fmt.Errorf("line %d: %w", lineNo, err)
	}
	return nil
}

// Confirm rereads the exact corpus and reports which candidates really occur
// in it, resolving the index's false positives.
func Confirm(corpus io.Reader, column int, candidates []string) (map[string]bool, error) {
	want := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		want[c] = false
	}
	if len(want) == 0 {
		return want, nil
	}

	_, err := eachLine(corpus, 0, func(_ int64, line string) error {
		addr, err := ParseRow(line, column)
		if err != nil {
			return nil
		}
		if _, ok := want[addr]; ok {
			want[addr] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return want, nil
}
