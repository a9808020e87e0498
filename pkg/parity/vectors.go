// Package parity replays recorded (input, expected key) pairs through the
// key derivation code and reports divergence.
package parity

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/screa/entropy-audit/pkg/keygen"
)

// ErrBadVector reports an unparseable dataset record.
var ErrBadVector = errors.New("bad test vector")

// Vector is one recorded expectation. For the mnemonic family Expected is
// the pool entropy and its length selects the pool size.
type Vector struct {
	Index       uint64
	TimestampMs uint64
	Sequence    uint32
	Family      keygen.Family
	Variant     engine.Variant
	Expected    []byte
}

func (v Vector) String() string {
	t := keygen.Target{Family: v.Family, Variant: v.Variant}
	return fmt.Sprintf("#%d %s ts=%d seq=%d", v.Index, t, v.TimestampMs, v.Sequence)
}

var header = []string{"index", "timestamp_ms", "private_key_hex", "family", "variant", "sequence"}

// columns holds the record position of each field, -1 when absent.
type columns struct {
	index, timestamp, key, family, variant, sequence int
}

// positional is the layout of headerless datasets and of WriteVectors.
var positional = columns{0, 1, 2, 3, 4, 5}

// headerColumns locates fields by name. Unknown columns, such as the
// entropy_pattern column of older datasets, are ignored.
func headerColumns(rec []string) (columns, error) {
	c := columns{-1, -1, -1, -1, -1, -1}
	for i, name := range rec {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "index":
			c.index = i
		case "timestamp_ms", "timestamp":
			c.timestamp = i
		case "private_key_hex", "private_key":
			c.key = i
		case "family":
			c.family = i
		case "variant", "engine":
			c.variant = i
		case "sequence":
			c.sequence = i
		}
	}
	if c.index < 0 || c.timestamp < 0 || c.key < 0 {
		return c, errors.New("header needs index, timestamp_ms and private_key_hex columns")
	}
	return c, nil
}

// LoadVectors reads a CSV dataset. A leading header row, recognised by an
// "index" first field, selects columns by name; without one the layout of
// WriteVectors is assumed. Index, timestamp and key are required; family
// defaults to timestamp-hash, variant to v8 and sequence to the index.
func LoadVectors(r io.Reader) ([]Vector, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	cols := positional
	var out []Vector
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read vectors: %w", err)
		}
		row, _ := cr.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "index") {
			if cols, err = headerColumns(rec); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadVector, row, err)
			}
			continue
		}
		v, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadVector, row, err)
		}
		out = append(out, v)
	}
}

func parseRecord(rec []string, cols columns) (Vector, error) {
	need := max(cols.index, cols.timestamp, cols.key) + 1
	if len(rec) < need {
		return Vector{}, fmt.Errorf("want at least %d fields, got %d", need, len(rec))
	}
	field := func(i int) string {
		if i >= 0 && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var v Vector
	var err error
	if v.Index, err = strconv.ParseUint(field(cols.index), 10, 64); err != nil {
		return v, fmt.Errorf("index: %w", err)
	}
	if v.TimestampMs, err = strconv.ParseUint(field(cols.timestamp), 10, 64); err != nil {
		return v, fmt.Errorf("timestamp: %w", err)
	}
	if v.Expected, err = hex.DecodeString(strings.TrimPrefix(field(cols.key), "0x")); err != nil {
		return v, fmt.Errorf("key: %w", err)
	}

	v.Family = keygen.TimestampHash
	if s := field(cols.family); s != "" {
		if v.Family, err = keygen.ParseFamily(s); err != nil {
			return v, err
		}
	}
	v.Variant = engine.V8Lcg
	if s := field(cols.variant); s != "" {
		if v.Variant, err = engine.ParseVariant(s); err != nil {
			return v, err
		}
	}
	v.Sequence = uint32(v.Index)
	if s := field(cols.sequence); s != "" {
		seq, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return v, fmt.Errorf("sequence: %w", err)
		}
		v.Sequence = uint32(seq)
	}

	want := keygen.KeyLen
	if v.Family == keygen.MnemonicPool {
		want = len(v.Expected)
		if want != keygen.PoolMnemonic128 && want != keygen.PoolMnemonic192 {
			return v, fmt.Errorf("mnemonic entropy of %d bytes", want)
		}
	}
	if len(v.Expected) != want {
		return v, fmt.Errorf("key of %d bytes, want %d", len(v.Expected), want)
	}
	return v, nil
}

// LoadVectorsFile reads a dataset from path.
func LoadVectorsFile(path string) ([]Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVectors(f)
}

// WriteVectors writes vectors in the format LoadVectors reads, header
// included.
func WriteVectors(w io.Writer, vectors []Vector) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, v := range vectors {
		variant := ""
		if v.Family.UsesVariant() {
			variant = v.Variant.String()
		}
		rec := []string{
			strconv.FormatUint(v.Index, 10),
			strconv.FormatUint(v.TimestampMs, 10),
			hex.EncodeToString(v.Expected),
			v.Family.String(),
			variant,
			strconv.FormatUint(uint64(v.Sequence), 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Synthetic step between generated timestamps, in milliseconds.
const SyntheticStep = 100

// Synthesize builds n timestamp-hash vectors: vector i uses timestamp
// base+100*i and sequence i.
func Synthesize(base uint64, n int) []Vector {
	out := make([]Vector, n)
	for i := range out {
		ts := base + SyntheticStep*uint64(i)
		key := keygen.TimestampHashKey(ts, uint32(i))
		out[i] = Vector{
			Index:       uint64(i),
			TimestampMs: ts,
			Sequence:    uint32(i),
			Family:      keygen.TimestampHash,
			Expected:    key[:],
		}
	}
	return out
}
