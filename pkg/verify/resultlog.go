package verify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/screa/entropy-audit/pkg/types"
)

// Log file names, one per outcome.
var logNames = map[types.Outcome]string{
	types.OutcomeConfirmed:  "confirmed.log",
	types.OutcomeUnverified: "unverified.log",
	types.OutcomeEmpty:      "empty.log",
}

// ResultLog appends scan results to three disjoint files keyed by
// verification outcome. Appends are serialized so lines never interleave.
type ResultLog struct {
	mu    sync.Mutex
	files map[types.Outcome]*os.File
}

// OpenResultLog opens (creating if needed) the three logs in dir.
func OpenResultLog(dir string) (*ResultLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result directory: %w", err)
	}
	l := &ResultLog{files: make(map[types.Outcome]*os.File, len(logNames))}
	for outcome, name := range logNames {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		l.files[outcome] = f
	}
	return l, nil
}

// Path returns the file a result with the given outcome is written to.
func Path(dir string, outcome types.Outcome) string {
	return filepath.Join(dir, logNames[outcome])
}

// Append writes r as one line to the log matching its outcome.
func (l *ResultLog) Append(r *types.ScanResult) error {
	line := FormatResult(r)

	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[r.Verification.Outcome]
	if !ok {
		return fmt.Errorf("no log for outcome %s", r.Verification.Outcome)
	}
	_, err := f.WriteString(line)
	return err
}

// Close closes every log.
func (l *ResultLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for outcome, f := range l.files {
		errs = append(errs, f.Close())
		delete(l.files, outcome)
	}
	return errors.Join(errs...)
}

// FormatResult renders r as a tab separated line ending in a newline:
// time, family, variant, timestamp, sequence, address kind, address, key,
// mnemonic, then the balance or the reason it is unverified.
func FormatResult(r *types.ScanResult) string {
	detail := ""
	switch r.Verification.Outcome {
	case types.OutcomeConfirmed:
		detail = strconv.FormatInt(r.Verification.Balance, 10)
	case types.OutcomeUnverified:
		detail = r.Verification.Reason
	}
	fields := []string{
		r.FoundAt.UTC().Format(time.RFC3339),
		r.Family,
		r.Variant,
		strconv.FormatUint(r.TimestampMs, 10),
		strconv.FormatUint(uint64(r.Sequence), 10),
		r.AddressKind,
		r.DerivedAddress,
		r.PrivateKeyHex,
		r.Mnemonic,
		detail,
	}
	for i, f := range fields {
		fields[i] = strings.Map(func(c rune) rune {
			if c == '\t' || c == '\n' || c == '\r' {
				return ' '
			}
			return c
		}, f)
	}
	return strings.Join(fields, "\t") + "\n"
}
