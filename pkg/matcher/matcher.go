// Package matcher holds the membership index that candidate addresses are
// tested against. A negative answer is final; a positive answer only means
// the address deserves an authoritative check.
package matcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/willf/bloom"

	"github.com/screa/entropy-audit/internal/logger"
)

// Errors
var (
	ErrMalformedRow   = errors.New("malformed corpus row")
	ErrInvalidOptions = errors.New("invalid index options")
)

const (
	maxAddressLen = 128
	progressEvery = 1_000_000
)

// Index is a bloom filter over address strings plus the parameters it was
// sized for. It is built by a single writer and read-only afterwards, so
// Contains is safe for concurrent use once construction has finished.
type Index struct {
	filter   *bloom.BloomFilter
	capacity uint
	fpRate   float64
	count    uint64
}

// New returns an empty index sized for capacity entries at the given false
// positive rate.
func New(capacity uint, fpRate float64) (*Index, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidOptions)
	}
	if fpRate <= 0 || fpRate >= 1 {
		return nil, fmt.Errorf("%w: false positive rate %g not in (0,1)", ErrInvalidOptions, fpRate)
	}
	return &Index{
		filter:   bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
		fpRate:   fpRate,
	}, nil
}

// Add inserts one address.
func (ix *Index) Add(addr string) {
	ix.filter.Add([]byte(addr))
	ix.count++
}

// Contains reports whether addr may be in the corpus. False is a guarantee
// of absence.
func (ix *Index) Contains(addr string) bool {
	return ix.filter.Test([]byte(addr))
}

func (ix *Index) Capacity() uint             { return ix.capacity }
func (ix *Index) FalsePositiveRate() float64 { return ix.fpRate }
func (ix *Index) Count() uint64              { return ix.count }
func (ix *Index) Bits() uint                 { return ix.filter.Cap() }
func (ix *Index) HashCount() uint            { return ix.filter.K() }

// EstimateSize returns the bit count and hash count an index for capacity
// entries at fpRate would use.
func EstimateSize(capacity uint, fpRate float64) (bits, hashes uint) {
	return bloom.EstimateParameters(capacity, fpRate)
}

// ParseRow extracts the address from one corpus line. Lines are tab
// separated when they contain a tab and comma separated otherwise; column
// selects the field holding the address.
func ParseRow(line string, column int) (string, error) {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	fields := strings.Split(strings.TrimRight(line, "\r\n"), sep)
	if column < 0 || column >= len(fields) {
		return "", fmt.Errorf("%w: no column %d", ErrMalformedRow, column)
	}
	addr := strings.TrimSpace(fields[column])
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", ErrMalformedRow)
	}
	if len(addr) > maxAddressLen {
		return "", fmt.Errorf("%w: address of %d bytes", ErrMalformedRow, len(addr))
	}
	for _, r := range addr {
		if r <= ' ' || r > '~' {
			return "", fmt.Errorf("%w: unexpected character %q", ErrMalformedRow, r)
		}
	}
	return addr, nil
}

func isHeader(lineNo int64, addr string) bool {
	return lineNo == 1 && isHeaderName(addr)
}

// BuildOptions configures Build.
type BuildOptions struct {
	Capacity          uint
	FalsePositiveRate float64
	Column            int
	// Validate, when set, rejects addresses that are not well formed for
	// the chain being audited. Rejected rows count as malformed.
	Validate func(addr string) error
}

// BuildStats counts what happened to every corpus line.
type BuildStats struct {
	Lines     int64
	Inserted  int64
	Malformed int64
}

// Build reads an address corpus and inserts every well-formed row into a new
// index. Malformed rows are logged and skipped; only read errors abort.
func Build(r io.Reader, opts BuildOptions, log *logger.Logger) (*Index, BuildStats, error) {
	var stats BuildStats
	ix, err := New(opts.Capacity, opts.FalsePositiveRate)
	if err != nil {
		return nil, stats, err
	}

	stats.Lines, err = eachLine(r, 0, func(lineNo int64, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		addr, err := parseChecked(line, opts.Column, opts.Validate)
		if err != nil {
			stats.Malformed++
			log.Printf("Skipping corpus line %d: %v", lineNo, err)
			return nil
		}
		if isHeader(lineNo, addr) {
			return nil
		}
		ix.Add(addr)
		stats.Inserted++
		if stats.Inserted%progressEvery == 0 {
			log.Printf("Indexed %s addresses...", humanize.Comma(stats.Inserted))
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("read corpus: %w", err)
	}
	if uint64(stats.Inserted) > uint64(opts.Capacity) {
		log.Printf("Warning: inserted %s addresses into an index sized for %s; false positive rate will exceed %g",
			humanize.Comma(stats.Inserted), humanize.Comma(int64(opts.Capacity)), opts.FalsePositiveRate)
	}
	return ix, stats, nil
}

// BuildFile builds an index from a corpus file. A zero capacity sizes the
// index from the file's line count.
func BuildFile(path string, opts BuildOptions, log *logger.Logger) (*Index, BuildStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	if opts.Capacity == 0 {
		n, err := eachLine(f, 0, func(int64, string) error { return nil })
		if err != nil {
			return nil, BuildStats{}, fmt.Errorf("count corpus lines: %w", err)
		}
		if n == 0 {
			n = 1
		}
		opts.Capacity = uint(n)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, BuildStats{}, fmt.Errorf("rewind corpus: %w", err)
		}
		log.Printf("Sizing index for %s corpus lines", humanize.Comma(n))
	}
	return Build(f, opts, log)
}

func parseChecked(line string, column int, validate func(string) error) (string, error) {
	addr, err := ParseRow(line, column)
	if err != nil {
		return "", err
	}
	if validate != nil && !isHeaderName(addr) {
		if err := validate(addr); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
	}
	return addr, nil
}

func isHeaderName(addr string) bool {
	return strings.HasPrefix(strings.ToLower(addr), "address")
}

// eachLine calls fn for every line after the first skip lines and returns
// the number of lines read, including skipped ones. Lines of any length are
// accepted.
func eachLine(r io.Reader, skip int64, fn func(lineNo int64, line string) error) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var n int64
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			n++
			if n > skip {
				if ferr := fn(n, line); ferr != nil {
					return n, ferr
				}
			}
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}
