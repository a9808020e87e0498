package config

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func scanConfig() *Config {
	c := NewConfig()
	c.SetStart(1389781800000)
	c.SetEnd(1389781899999)
	c.IndexPath = "targets.bloom"
	return c
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.Workers <= 0 || c.LogInterval != 5 || c.ChunkSize != 10000 || c.Sequences != 1 {
		t.Errorf("defaults = %+v", c)
	}
	if c.FalsePositiveRate != 1e-6 || c.VerifyTimeout.Seconds() != 10 {
		t.Errorf("defaults = %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"no start", func(c *Config) { c.startSet = false }, ErrNoRange},
		{"no end", func(c *Config) { c.endSet = false }, ErrNoRange},
		{"epoch start", func(c *Config) { c.SetStart(0) }, nil},
		{"reversed range", func(c *Config) { c.Start, c.End = c.End, c.Start }, ErrInvalidRange},
		{"no index", func(c *Config) { c.IndexPath = "" }, ErrNoIndex},
		{"no families", func(c *Config) { c.Families = " , " }, ErrNoFamilies},
		{"no variants", func(c *Config) { c.Variants = "" }, ErrNoVariants},
		{"timestamp hash needs no variant", func(c *Config) { c.Variants = ""; c.Families = "timestamp-hash" }, nil},
		{"bad pool", func(c *Config) { c.Families = "mnemonic"; c.PoolLen = 20 }, ErrInvalidPoolLen},
		{"bad network", func(c *Config) { c.Network = "signet-x" }, ErrUnknownNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scanConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateRequiresBothBounds(t *testing.T) {
	c := NewConfig()
	c.IndexPath = "targets.bloom"
	c.End = 1389781899999
	if err := c.Validate(); !errors.Is(err, ErrNoRange) {
		t.Errorf("Validate() with unset bounds = %v, want ErrNoRange", err)
	}
	c.SetEnd(1389781899999)
	if err := c.Validate(); !errors.Is(err, ErrNoRange) {
		t.Errorf("Validate() without start = %v, want ErrNoRange", err)
	}
	c.SetStart(1389781800000)
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidateBuild(t *testing.T) {
	c := NewConfig()
	if err := c.ValidateBuild(); !errors.Is(err, ErrNoCorpus) {
		t.Errorf("ValidateBuild() = %v", err)
	}
	c.Corpus = "addresses.tsv"
	if err := c.ValidateBuild(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("ValidateBuild() = %v", err)
	}
	c.IndexPath = "targets.bloom"
	c.FalsePositiveRate = 1.5
	if err := c.ValidateBuild(); !errors.Is(err, ErrInvalidFalsePositiveRate) {
		t.Errorf("ValidateBuild() = %v", err)
	}
	c.FalsePositiveRate = 0.001
	if err := c.ValidateBuild(); err != nil {
		t.Errorf("ValidateBuild() = %v", err)
	}
}

func TestTargetList(t *testing.T) {
	c := scanConfig()
	c.Families = "pool-rc4,timestamp-hash"
	c.Variants = "v8,crt"
	targets, err := c.TargetList()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 3 {
		t.Errorf("targets = %v", targets)
	}
}

func TestNetParams(t *testing.T) {
	c := NewConfig()
	c.Network = "testnet"
	p, err := c.NetParams()
	if err != nil || p != &chaincfg.TestNet3Params {
		t.Errorf("NetParams() = %v, %v", p, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1389781800000", 1389781800000, false},
		{"2014-01-15", 1389744000000, false},
		{"2014-01-15T10:30:00Z", 1389781800000, false},
		{"1969-12-31", 0, true},
		{"yesterday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestGetRangeDescription(t *testing.T) {
	c := scanConfig()
	want := "1389781800000..1389781899999 ms (2014-01-15T10:30:00Z to 2014-01-15T10:31:39Z)"
	if got := c.GetRangeDescription(); got != want {
		t.Errorf("GetRangeDescription() = %q", got)
	}
}
