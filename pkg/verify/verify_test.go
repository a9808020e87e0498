package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/screa/entropy-audit/pkg/types"
)

func esploraStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/address/funded":
			fmt.Fprint(w, `{"address":"funded","chain_stats":{"funded_txo_sum":5000000000,"spent_txo_sum":1000}}`)
		case "/address/spent":
			fmt.Fprint(w, `{"address":"spent","chain_stats":{"funded_txo_sum":700,"spent_txo_sum":700}}`)
		case "/address/garbage":
			fmt.Fprint(w, `{"chain_stats":`)
		case "/address/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.Error(w, "Invalid Bitcoin address", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEsploraBalance(t *testing.T) {
	srv := esploraStub(t)
	c := NewEsploraClient(srv.URL+"/", srv.Client())

	got, err := c.Balance(context.Background(), "funded")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got != 5000000000-1000 {
		t.Errorf("Balance = %d", got)
	}

	if _, err := c.Balance(context.Background(), "nope"); !errors.Is(err, ErrStatus) {
		t.Errorf("bad address error = %v", err)
	}
	if _, err := c.Balance(context.Background(), "garbage"); err == nil {
		t.Error("truncated JSON accepted")
	}
}

func TestClassify(t *testing.T) {
	srv := esploraStub(t)
	c := NewEsploraClient(srv.URL, srv.Client())

	tests := []struct {
		addr    string
		outcome types.Outcome
	}{
		{"funded", types.OutcomeConfirmed},
		{"spent", types.OutcomeEmpty},
		{"nope", types.OutcomeUnverified},
		{"garbage", types.OutcomeUnverified},
		{"slow", types.OutcomeUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := Classify(context.Background(), c, tt.addr, 100*time.Millisecond)
			if v.Outcome != tt.outcome {
				t.Errorf("Classify(%s) = %+v, want %s", tt.addr, v, tt.outcome)
			}
			if tt.outcome == types.OutcomeUnverified && v.Reason == "" {
				t.Error("unverified without a reason")
			}
		})
	}

	if v := Classify(context.Background(), nil, "funded", time.Second); v.Outcome != types.OutcomeUnverified {
		t.Errorf("nil checker = %+v", v)
	}
}

func result(outcome types.Outcome, addr string) *types.ScanResult {
	return &types.ScanResult{
		Point:          types.Point{TimestampMs: 1389781850000, Variant: "v8", Family: "pool-rc4"},
		PrivateKeyHex:  strings.Repeat("ab", 32),
		DerivedAddress: addr,
		AddressKind:    "p2pkh",
		MembershipHit:  true,
		Verification:   types.Verification{Outcome: outcome, Balance: 42, Reason: "timeout\tafter\n10s"},
		FoundAt:        time.Date(2014, 1, 15, 11, 30, 50, 0, time.UTC),
	}
}

func TestResultLogSeparatesOutcomes(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenResultLog(dir)
	if err != nil {
		t.Fatalf("OpenResultLog: %v", err)
	}
	for _, o := range []types.Outcome{types.OutcomeConfirmed, types.OutcomeEmpty, types.OutcomeUnverified, types.OutcomeConfirmed} {
		if err := l.Append(result(o, "1"+o.String())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := map[types.Outcome]int{types.OutcomeConfirmed: 2, types.OutcomeEmpty: 1, types.OutcomeUnverified: 1}
	for o, n := range want {
		b, err := os.ReadFile(Path(dir, o))
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
		if len(lines) != n {
			t.Errorf("%s log has %d lines, want %d", o, len(lines), n)
		}
		for _, line := range lines {
			if fields := strings.Split(line, "\t"); len(fields) != 10 || fields[6] != "1"+o.String() {
				t.Errorf("%s log line %q", o, line)
			}
		}
	}

	// Reopening appends rather than truncating.
	l, err = OpenResultLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	l.Append(result(types.OutcomeEmpty, "1again"))
	l.Close()
	b, _ := os.ReadFile(Path(dir, types.OutcomeEmpty))
	if strings.Count(string(b), "\n") != 2 {
		t.Errorf("empty log after reopen = %q", b)
	}
}

func TestResultLogConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenResultLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Append(result(types.OutcomeConfirmed, fmt.Sprintf("1w%di%d", w, i)))
			}
		}(w)
	}
	wg.Wait()
	l.Close()

	b, err := os.ReadFile(Path(dir, types.OutcomeConfirmed))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	if len(lines) != 400 {
		t.Fatalf("%d lines, want 400", len(lines))
	}
	for _, line := range lines {
		if len(strings.Split(line, "\t")) != 10 {
			t.Fatalf("interleaved line %q", line)
		}
	}
}

func TestFormatResult(t *testing.T) {
	got := FormatResult(result(types.OutcomeUnverified, "1abc"))
	want := "2014-01-15T11:30:50Z\tpool-rc4\tv8\t1389781850000\t0\tp2pkh\t1abc\t" + strings.Repeat("ab", 32) + "\t\ttimeout after 10s\n"
	if got != want {
		t.Errorf("FormatResult =\n%q\nwant\n%q", got, want)
	}
	if got := FormatResult(result(types.OutcomeConfirmed, "1abc")); !strings.HasSuffix(got, "\t42\n") {
		t.Errorf("confirmed line = %q", got)
	}
}
