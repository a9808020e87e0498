package scanner

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/screa/entropy-audit/internal/config"
	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/internal/logger"
	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/screa/entropy-audit/pkg/keygen"
	"github.com/screa/entropy-audit/pkg/matcher"
	"github.com/screa/entropy-audit/pkg/types"
)

const (
	rangeStart = 1389781850000
	plantedAt  = rangeStart + 37
)

type memorySink struct {
	mu      sync.Mutex
	results []*types.ScanResult
}

func (m *memorySink) Append(r *types.ScanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

type fixedChecker struct {
	balance int64
	err     error
}

func (f fixedChecker) Balance(context.Context, string) (int64, error) { return f.balance, f.err }

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetStart(rangeStart)
	cfg.SetEnd(rangeStart + 99)
	cfg.ChunkSize = 10
	cfg.Workers = 4
	cfg.Variants = "v8,crt"
	cfg.Families = "pool-rc4"
	cfg.AddressKinds = "p2pkh"
	cfg.IndexPath = "unused"
	return cfg
}

// plant builds an index holding the compressed address of the v8 stream
// cipher key at plantedAt.
func plant(t *testing.T, d *crypto.Deriver) (*matcher.Index, string) {
	t.Helper()
	key, err := keygen.StreamKey(engine.V8Lcg, plantedAt)
	if err != nil {
		t.Fatal(err)
	}
	addrs, err := d.FromPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := matcher.New(1000, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	ix.Add(addrs[0].Value)
	return ix, addrs[0].Value
}

func newScanner(t *testing.T, cfg *config.Config, deps Deps) *Scanner {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	s, err := New(cfg, logger.Discard(), deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestRunFindsPlantedKey(t *testing.T) {
	tests := []struct {
		name    string
		checker fixedChecker
		want    types.Outcome
	}{
		{"confirmed", fixedChecker{balance: 150000}, types.OutcomeConfirmed},
		{"empty", fixedChecker{}, types.OutcomeEmpty},
		{"unverified", fixedChecker{err: errors.New("connection refused")}, types.OutcomeUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})
			ix, addr := plant(t, d)
			sink := &memorySink{}
			s := newScanner(t, cfg, Deps{Index: ix, Deriver: d, Checker: tt.checker, Sink: sink})

			sum := s.Run(context.Background())
			if !sum.Completed || sum.ResumeFrom != cfg.End+1 {
				t.Errorf("summary = %+v", sum)
			}
			if sum.Candidates != 200 || sum.Addresses != 200 || sum.Hits != 1 {
				t.Errorf("summary counts = %+v", sum)
			}
			if len(sink.results) != 1 {
				t.Fatalf("sink got %d results", len(sink.results))
			}
			r := sink.results[0]
			if r.DerivedAddress != addr || r.TimestampMs != plantedAt || r.Variant != "v8" || r.Family != "pool-rc4" {
				t.Errorf("result = %+v", r)
			}
			if r.Verification.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", r.Verification.Outcome, tt.want)
			}
			key, _ := keygen.StreamKey(engine.V8Lcg, plantedAt)
			c := types.Candidate{PrivateKey: key}
			if r.PrivateKeyHex != c.PrivateKeyHex() {
				t.Errorf("private key = %s", r.PrivateKeyHex)
			}
			total := sum.Confirmed + sum.Empty + sum.Unverified
			if total != 1 {
				t.Errorf("outcome counters = %+v", sum)
			}
		})
	}
}

func TestMnemonicHitRecordsChildKey(t *testing.T) {
	cfg := testConfig()
	cfg.Variants = "v8"
	cfg.Families = "mnemonic"
	d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})

	mnemonic, err := keygen.Mnemonic(engine.V8Lcg, plantedAt, keygen.PoolMnemonic128)
	if err != nil {
		t.Fatal(err)
	}
	addrs, err := d.FromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	ix, err := matcher.New(1000, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	ix.Add(addrs[0].Value)

	sink := &memorySink{}
	s := newScanner(t, cfg, Deps{Index: ix, Deriver: d, Checker: fixedChecker{}, Sink: sink})
	sum := s.Run(context.Background())
	if !sum.Completed || sum.Hits != 1 || len(sink.results) != 1 {
		t.Fatalf("summary = %+v, results = %d", sum, len(sink.results))
	}
	r := sink.results[0]
	if r.Mnemonic != mnemonic || r.DerivedAddress != addrs[0].Value {
		t.Errorf("result = %+v", r)
	}
	if want := hex.EncodeToString(addrs[0].PrivateKey[:]); r.PrivateKeyHex != want || r.PrivateKeyHex == strings.Repeat("0", 64) {
		t.Errorf("private key = %q, want %s", r.PrivateKeyHex, want)
	}
}

func TestRunWithoutCheckerIsUnverified(t *testing.T) {
	cfg := testConfig()
	d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})
	ix, _ := plant(t, d)
	var hits []*types.ScanResult
	var mu sync.Mutex
	s := newScanner(t, cfg, Deps{Index: ix, Deriver: d, OnHit: func(r *types.ScanResult) {
		mu.Lock()
		hits = append(hits, r)
		mu.Unlock()
	}})

	sum := s.Run(context.Background())
	if sum.Unverified != 1 || len(hits) != 1 || hits[0].Verification.Reason == "" {
		t.Errorf("summary = %+v, hits = %+v", sum, hits)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	cfg := testConfig()
	d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})
	ix, _ := plant(t, d)
	s := newScanner(t, cfg, Deps{Index: ix, Deriver: d})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := s.Run(ctx)
	if sum.Completed || sum.ResumeFrom != cfg.Start || sum.Candidates != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestStopReportsResumePoint(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})
	ix, _ := plant(t, d)

	var s *Scanner
	s = newScanner(t, cfg, Deps{Index: ix, Deriver: d, OnHit: func(*types.ScanResult) { s.Stop() }})
	sum := s.Run(context.Background())

	// The hit sits in the fourth chunk; the chunks before it completed.
	if sum.Completed || sum.ResumeFrom != rangeStart+30 || sum.Hits != 1 {
		t.Errorf("summary = %+v", sum)
	}
	s.Stop() // idempotent
}

func TestResumeFromTracksContiguousChunks(t *testing.T) {
	cfg := testConfig()
	s := newScanner(t, cfg, Deps{})

	if got := s.ResumeFrom(); got != rangeStart {
		t.Errorf("initial ResumeFrom = %d", got)
	}
	s.complete(1)
	s.complete(2)
	if got := s.ResumeFrom(); got != rangeStart {
		t.Errorf("ResumeFrom with a gap = %d", got)
	}
	s.complete(0)
	if got := s.ResumeFrom(); got != rangeStart+30 {
		t.Errorf("ResumeFrom after filling the gap = %d", got)
	}
	for i := uint64(3); i < 10; i++ {
		s.complete(i)
	}
	if got := s.ResumeFrom(); got != cfg.End+1 {
		t.Errorf("ResumeFrom after all chunks = %d", got)
	}
}

func TestPartialLastChunk(t *testing.T) {
	cfg := testConfig()
	cfg.End = rangeStart + 94 // 10 chunks, the last one of 5
	cfg.Variants = "v8"
	d := crypto.NewDeriver(nil, []crypto.AddressKind{crypto.P2PKH})
	ix, _ := plant(t, d)
	s := newScanner(t, cfg, Deps{Index: ix, Deriver: d})

	sum := s.Run(context.Background())
	if !sum.Completed || sum.Candidates != 95 || sum.ResumeFrom != cfg.End+1 {
		t.Errorf("summary = %+v", sum)
	}
}
