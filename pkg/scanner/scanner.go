// Package scanner drives a scan over a timestamp range: it hands chunks of
// the range to a pool of workers, verifies membership hits and records them.
package scanner

import (
	"context"
	"encoding/hex"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/screa/entropy-audit/internal/config"
	"github.com/screa/entropy-audit/internal/logger"
	"github.com/screa/entropy-audit/pkg/keygen"
	"github.com/screa/entropy-audit/pkg/types"
	"github.com/screa/entropy-audit/pkg/verify"
	"github.com/screa/entropy-audit/pkg/worker"
)

// Sink receives every classified hit.
type Sink interface {
	Append(r *types.ScanResult) error
}

// Deps are the collaborators of a scan.
type Deps struct {
	Index   worker.Index
	Deriver worker.Deriver
	Checker verify.BalanceChecker // nil disables verification
	Sink    Sink
	// OnHit, when set, is called after a hit has been recorded.
	OnHit func(r *types.ScanResult)
}

// Scanner coordinates one scan
type Scanner struct {
	config  *config.Config
	logger  *logger.Logger
	deps    Deps
	targets []keygen.Target

	counters   worker.Counters
	hits       atomic.Int64
	confirmed  atomic.Int64
	unverified atomic.Int64
	empty      atomic.Int64

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu       sync.Mutex
	frontier uint64              // chunks below this index are complete
	finished map[uint64]struct{} // completed chunks at or above frontier
}

// New creates a scanner. cfg must have passed Validate.
func New(cfg *config.Config, log *logger.Logger, deps Deps) (*Scanner, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 5
	}
	targets, err := cfg.TargetList()
	if err != nil {
		return nil, err
	}
	return &Scanner{
		config:   cfg,
		logger:   log,
		deps:     deps,
		targets:  targets,
		done:     make(chan struct{}),
		finished: make(map[uint64]struct{}),
	}, nil
}

type chunk struct {
	index      uint64
	start, end uint64 // inclusive
}

// Run scans the configured range until it is exhausted, ctx is cancelled or
// Stop is called. The summary's ResumeFrom is the first timestamp that was
// not fully processed.
func (s *Scanner) Run(ctx context.Context) *types.Summary {
	start := time.Now()
	chunks := make(chan chunk)

	s.logger.Printf("Scanning %s with %d workers over %d targets",
		s.config.GetRangeDescription(), s.config.Workers, len(s.targets))

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, chunks)
	}

	logTicker := time.NewTicker(time.Duration(s.config.LogInterval) * time.Second)
	logDone := make(chan struct{})
	go s.periodicLogger(logTicker, logDone, start)

	s.produce(ctx, chunks)
	s.wg.Wait()

	logTicker.Stop()
	close(logDone)

	sum := s.summary()
	sum.Duration = time.Since(start)
	return sum
}

// produce feeds chunks until the range ends or the scan is cancelled.
func (s *Scanner) produce(ctx context.Context, chunks chan<- chunk) {
	defer close(chunks)
	size := s.config.ChunkSize
	for i, from := uint64(0), s.config.Start; from <= s.config.End; i++ {
		to := from + size - 1
		if to > s.config.End || to < from {
			to = s.config.End
		}
		select {
		case chunks <- chunk{index: i, start: from, end: to}:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
		if to == s.config.End {
			return
		}
		from = to + 1
	}
}

// worker runs the scan loop for a single worker
func (s *Scanner) worker(ctx context.Context, chunks <-chan chunk) {
	defer s.wg.Done()

	w := worker.NewWorker(s.deps.Deriver, s.deps.Index, s.targets, s.config.Sequences, &s.counters)
	var hits []worker.Hit
	for c := range chunks {
		for ts := c.start; ; ts++ {
			// Check if we should stop before each timestamp
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			default:
			}

			hits = w.ProcessTimestamp(ts, hits[:0])
			for _, h := range hits {
				s.record(ctx, h)
			}
			if ts == c.end {
				break
			}
		}
		s.complete(c.index)
	}
}

// record verifies a hit and writes it to the sink.
func (s *Scanner) record(ctx context.Context, h worker.Hit) {
	s.hits.Add(1)
	r := &types.ScanResult{
		Point:          h.Candidate.Point,
		Mnemonic:       h.Candidate.Mnemonic,
		DerivedAddress: h.Address.Value,
		AddressKind:    string(h.Address.Kind),
		MembershipHit:  true,
		FoundAt:        time.Now(),
	}
	if h.Candidate.Mnemonic == "" {
		r.PrivateKeyHex = h.Candidate.PrivateKeyHex()
	} else {
		r.PrivateKeyHex = hex.EncodeToString(h.Address.PrivateKey[:])
	}
	r.Verification = verify.Classify(ctx, s.deps.Checker, r.DerivedAddress, s.config.VerifyTimeout)

	switch r.Verification.Outcome {
	case types.OutcomeConfirmed:
		s.confirmed.Add(1)
	case types.OutcomeEmpty:
		s.empty.Add(1)
	default:
		s.unverified.Add(1)
	}

	s.logger.Printf("Hit: %s %s at %d (%s)", r.AddressKind, r.DerivedAddress, r.TimestampMs, r.Verification.Outcome)
	if s.deps.Sink != nil {
		if err := s.deps.Sink.Append(r); err != nil {
			s.logger.Printf("Failed to record hit for %s: %v", r.DerivedAddress, err)
		}
	}
	if s.deps.OnHit != nil {
		s.deps.OnHit(r)
	}
}

// complete marks a chunk done and advances the contiguous frontier.
func (s *Scanner) complete(index uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[index] = struct{}{}
	for {
		if _, ok := s.finished[s.frontier]; !ok {
			return
		}
		delete(s.finished, s.frontier)
		s.frontier++
	}
}

// ResumeFrom returns the lowest timestamp not yet fully processed, or End+1
// once the whole range is done.
func (s *Scanner) ResumeFrom() uint64 {
	s.mu.Lock()
	frontier := s.frontier
	s.mu.Unlock()

	size := s.config.ChunkSize
	span := s.config.End - s.config.Start
	if frontier > span/size {
		return s.config.End + 1
	}
	return s.config.Start + frontier*size
}

// Stop stops the scan
func (s *Scanner) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scanner) summary() *types.Summary {
	resume := s.ResumeFrom()
	return &types.Summary{
		Candidates:  s.counters.Candidates.Load(),
		Addresses:   s.counters.Addresses.Load(),
		Hits:        s.hits.Load(),
		Confirmed:   s.confirmed.Load(),
		Unverified:  s.unverified.Load(),
		Empty:       s.empty.Load(),
		DeriveError: s.counters.DeriveErrors.Load(),
		ResumeFrom:  resume,
		Completed:   resume > s.config.End,
	}
}

// periodicLogger logs scan progress at regular intervals
func (s *Scanner) periodicLogger(ticker *time.Ticker, done chan struct{}, start time.Time) {
	for {
		select {
		case <-ticker.C:
			candidates := s.counters.Candidates.Load()
			elapsed := time.Since(start)

			// Calculate rate safely
			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(candidates) / elapsed.Seconds()
			}

			s.logger.Printf("Progress: %s candidates, %s/sec, %d hits (%d confirmed), resume from %d",
				humanize.Comma(candidates), humanize.CommafWithDigits(rate, 0),
				s.hits.Load(), s.confirmed.Load(), s.ResumeFrom())
		case <-done:
			return
		}
	}
}
