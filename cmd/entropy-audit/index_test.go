package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/screa/entropy-audit/pkg/matcher"
)

func TestConfirmPositivesUsesColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	corpus := "index,address\n0,1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa\n1,3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy\n"
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}
	positives := []matcher.Match{
		{Line: 4, Address: "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", Row: "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"},
		{Line: 9, Address: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", Row: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"},
	}

	tests := []struct {
		name   string
		column int
		want   int
		out    string
	}{
		{"address column", 1, 1, "4\t3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy\n"},
		{"index column", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got, err := confirmPositives(&buf, path, tt.column, positives)
			if err != nil {
				t.Fatalf("confirmPositives: %v", err)
			}
			if got != tt.want || buf.String() != tt.out {
				t.Errorf("confirmed %d, output %q; want %d, %q", got, buf.String(), tt.want, tt.out)
			}
		})
	}
}

func TestConfirmPositivesMissingCorpus(t *testing.T) {
	if _, err := confirmPositives(&bytes.Buffer{}, filepath.Join(t.TempDir(), "absent"), 0, nil); err == nil {
		t.Error("missing corpus accepted")
	}
}
