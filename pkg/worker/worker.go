package worker

import (
	"sync/atomic"

	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/pkg/keygen"
	"github.com/screa/entropy-audit/pkg/types"
)

// Index is the membership test candidates are checked against.
type Index interface {
	Contains(addr string) bool
}

// Deriver maps a candidate's key material to addresses.
type Deriver interface {
	FromPrivateKey(key [32]byte) ([]crypto.Address, error)
	FromMnemonic(mnemonic, passphrase string) ([]crypto.Address, error)
}

// Counters are shared by every worker of a scan.
type Counters struct {
	Candidates   atomic.Int64
	Addresses    atomic.Int64
	DeriveErrors atomic.Int64
}

// Hit is a candidate whose address passed the membership test.
type Hit struct {
	Candidate *types.Candidate
	Address   crypto.Address
}

// Worker derives and tests candidates. A worker is owned by one goroutine;
// the index, deriver and counters may be shared.
type Worker struct {
	deriver   Deriver
	index     Index
	targets   []keygen.Target
	sequences uint32
	counters  *Counters
}

// NewWorker creates a new worker instance
func NewWorker(deriver Deriver, index Index, targets []keygen.Target, sequences uint32, counters *Counters) *Worker {
	if sequences == 0 {
		sequences = 1
	}
	return &Worker{
		deriver:   deriver,
		index:     index,
		targets:   targets,
		sequences: sequences,
		counters:  counters,
	}
}

// ProcessTimestamp visits every target (and every sequence index for the
// families that use one) at one millisecond, appending hits to dst.
func (w *Worker) ProcessTimestamp(timestampMs uint64, dst []Hit) []Hit {
	for _, t := range w.targets {
		n := uint32(1)
		if t.Family.UsesSequence() {
			n = w.sequences
		}
		for seq := uint32(0); seq < n; seq++ {
			dst = w.Process(t, timestampMs, seq, dst)
		}
	}
	return dst
}

// Process derives one candidate and tests each of its addresses. Points whose
// key cannot be turned into an address are counted and skipped.
func (w *Worker) Process(t keygen.Target, timestampMs uint64, sequence uint32, dst []Hit) []Hit {
	w.counters.Candidates.Add(1)

	c, err := keygen.Derive(t, timestampMs, sequence)
	if err != nil {
		w.counters.DeriveErrors.Add(1)
		return dst
	}
	var addrs []crypto.Address
	if c.Mnemonic != "" {
		addrs, err = w.deriver.FromMnemonic(c.Mnemonic, "")
	} else {
		addrs, err = w.deriver.FromPrivateKey(c.PrivateKey)
	}
	if err != nil {
		w.counters.DeriveErrors.Add(1)
		return dst
	}

	w.counters.Addresses.Add(int64(len(addrs)))
	for _, a := range addrs {
		if w.index.Contains(a.Value) {
			dst = append(dst, Hit{Candidate: c, Address: a})
		}
	}
	return dst
}
