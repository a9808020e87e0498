package parity

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/screa/entropy-audit/internal/logger"
	"github.com/screa/entropy-audit/pkg/keygen"
	"github.com/screa/entropy-audit/pkg/oracle"
)

// ErrTooManyFailures aborts a run once more than MaxConsecutiveFailures
// mismatches occur in a row.
var ErrTooManyFailures = errors.New("too many consecutive parity failures")

// MaxConsecutiveFailures is the fail-fast threshold. Reaching it is
// tolerated; the next consecutive failure aborts.
const MaxConsecutiveFailures = 5

// Failure describes one mismatching vector.
type Failure struct {
	Vector Vector
	Actual []byte
	Err    error // derivation error, when there is no actual value
}

func (f Failure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Vector, f.Err)
	}
	return fmt.Sprintf("%s: expected %x, got %x", f.Vector, f.Vector.Expected, f.Actual)
}

// Report holds the counters of one run.
type Report struct {
	Total       int
	Passed      int
	Failed      int
	Consecutive int
	Failures    []Failure
	Aborted     bool
}

// Validator replays vectors through key extraction.
type Validator struct {
	log *logger.Logger
	// OracleCheck additionally recomputes timestamp-hash keys with the
	// reference SHA-256 compressor.
	OracleCheck bool
}

// NewValidator returns a validator logging to log.
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{log: log, OracleCheck: true}
}

// Extract runs the derivation path matching the vector's family.
func Extract(v Vector) ([]byte, error) {
	switch v.Family {
	case keygen.PoolStreamCipher:
		key, err := keygen.StreamKey(v.Variant, v.TimestampMs)
		if err != nil {
			return nil, err
		}
		return key[:], nil
	case keygen.TimestampHash:
		key := keygen.TimestampHashKey(v.TimestampMs, v.Sequence)
		return key[:], nil
	case keygen.MnemonicPool:
		return keygen.MnemonicEntropy(v.Variant, v.TimestampMs, len(v.Expected))
	default:
		return nil, fmt.Errorf("%w: %d", keygen.ErrUnknownFamily, uint8(v.Family))
	}
}

// Run checks every vector in order. It stops with ErrTooManyFailures once
// more than MaxConsecutiveFailures vectors in a row have failed; the report then
// carries the failures that triggered the abort.
func (val *Validator) Run(vectors []Vector) (Report, error) {
	var rep Report
	for _, v := range vectors {
		rep.Total++
		f, ok := val.check(v)
		if ok {
			rep.Passed++
			rep.Consecutive = 0
			val.log.Debugf("PASS %s", v)
			continue
		}
		rep.Failed++
		rep.Consecutive++
		rep.Failures = append(rep.Failures, f)
		val.log.Printf("FAIL %s", f)

		if rep.Consecutive > MaxConsecutiveFailures {
			rep.Aborted = true
			val.log.Printf("Aborting after %d consecutive failures (%d passed, %d failed of %d checked)",
				rep.Consecutive, rep.Passed, rep.Failed, rep.Total)
			last := rep.Failures[len(rep.Failures)-1]
			return rep, fmt.Errorf("%w: last %s", ErrTooManyFailures, last)
		}
	}
	return rep, nil
}

func (val *Validator) check(v Vector) (Failure, bool) {
	actual, err := Extract(v)
	if err != nil {
		return Failure{Vector: v, Err: err}, false
	}
	if !bytes.Equal(actual, v.Expected) {
		return Failure{Vector: v, Actual: actual}, false
	}
	if val.OracleCheck && v.Family == keygen.TimestampHash {
		buf := keygen.TimestampBuffer(v.TimestampMs, v.Sequence)
		ref := oracle.SHA256(buf[:])
		if !bytes.Equal(ref[:], actual) {
			return Failure{Vector: v, Actual: actual,
				Err: fmt.Errorf("reference transform disagrees: %s", hex.EncodeToString(ref[:]))}, false
		}
	}
	return Failure{}, true
}
