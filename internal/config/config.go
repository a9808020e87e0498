package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/screa/entropy-audit/pkg/keygen"
)

// Errors
var (
	ErrNoRange                  = errors.New("must specify --start and --end")
	ErrInvalidRange             = errors.New("--end must not be before --start")
	ErrNoIndex                  = errors.New("must specify --index")
	ErrNoCorpus                 = errors.New("must specify --corpus")
	ErrNoVariants               = errors.New("must specify at least one engine variant")
	ErrNoFamilies               = errors.New("must specify at least one key family")
	ErrInvalidFalsePositiveRate = errors.New("false positive rate must be between 0 and 1")
	ErrInvalidPoolLen           = errors.New("mnemonic pool length must be 16 or 24")
	ErrUnknownNetwork           = errors.New("unknown network")
)

// Config holds the application configuration
type Config struct {
	Workers     int
	Verbose     bool
	LogFile     string
	LogInterval int // Logging interval in seconds

	// Keyspace
	Start     uint64 // first timestamp, ms
	End       uint64 // last timestamp, ms, inclusive
	startSet  bool
	endSet    bool
	ChunkSize uint64 // timestamps handed to a worker at a time
	Sequences uint32 // sequence indexes per millisecond for families that use one
	Variants  string
	Families  string
	PoolLen   int

	// Matching and verification
	IndexPath     string
	AddressKinds  string
	Network       string
	OutputDir     string
	EsploraURL    string
	NoVerify      bool
	VerifyTimeout time.Duration

	// Index construction
	Corpus            string
	Capacity          uint
	FalsePositiveRate float64
	Column            int
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:           runtime.NumCPU(),
		LogInterval:       5, // Default 5 seconds
		ChunkSize:         10000,
		Sequences:         1,
		Variants:          "v8",
		Families:          "pool-rc4",
		PoolLen:           keygen.PoolMnemonic128,
		AddressKinds:      "p2pkh-uncompressed,p2pkh",
		Network:           "mainnet",
		OutputDir:         "results",
		VerifyTimeout:     10 * time.Second,
		FalsePositiveRate: 1e-6,
	}
}

// SetStart records the first timestamp of the scan range.
func (c *Config) SetStart(ms uint64) {
	c.Start = ms
	c.startSet = true
}

// SetEnd records the last timestamp of the scan range.
func (c *Config) SetEnd(ms uint64) {
	c.End = ms
	c.endSet = true
}

// Validate validates the configuration for a scan
func (c *Config) Validate() error {
	if !c.startSet || !c.endSet {
		return ErrNoRange
	}
	if c.End < c.Start {
		return ErrInvalidRange
	}
	if c.End == math.MaxUint64 {
		return fmt.Errorf("%w: end timestamp too large", ErrInvalidRange)
	}
	if c.IndexPath == "" {
		return ErrNoIndex
	}
	if _, err := c.TargetList(); err != nil {
		return err
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if _, err := c.NetParams(); err != nil {
		return err
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1
	}
	if c.Sequences == 0 {
		c.Sequences = 1
	}
	return nil
}

// ValidateBuild validates the configuration for building an index
func (c *Config) ValidateBuild() error {
	if c.Corpus == "" {
		return ErrNoCorpus
	}
	if c.IndexPath == "" {
		return ErrNoIndex
	}
	if c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1 {
		return ErrInvalidFalsePositiveRate
	}
	_, err := c.NetParams()
	return err
}

// TargetList expands the configured families and variants.
func (c *Config) TargetList() ([]keygen.Target, error) {
	families, err := keygen.ParseFamilies(c.Families)
	if err != nil {
		return nil, err
	}
	if len(families) == 0 {
		return nil, ErrNoFamilies
	}
	variants, err := engine.ParseVariants(c.Variants)
	if err != nil {
		return nil, err
	}
	for _, f := range families {
		if f.UsesVariant() && len(variants) == 0 {
			return nil, ErrNoVariants
		}
		if f == keygen.MnemonicPool && c.PoolLen != keygen.PoolMnemonic128 && c.PoolLen != keygen.PoolMnemonic192 {
			return nil, ErrInvalidPoolLen
		}
	}
	return keygen.Targets(families, variants, c.PoolLen), nil
}

// Kinds parses the configured address kinds.
func (c *Config) Kinds() ([]crypto.AddressKind, error) {
	return crypto.ParseAddressKinds(c.AddressKinds)
}

// NetParams returns the chain parameters for the configured network.
func (c *Config) NetParams() (*chaincfg.Params, error) {
	switch strings.ToLower(c.Network) {
	case "", "mainnet", "main":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Network)
	}
}

// GetRangeDescription returns a human-readable description of the range
func (c *Config) GetRangeDescription() string {
	from := time.UnixMilli(int64(c.Start)).UTC().Format(time.RFC3339)
	to := time.UnixMilli(int64(c.End)).UTC().Format(time.RFC3339)
	return fmt.Sprintf("%d..%d ms (%s to %s)", c.Start, c.End, from, to)
}

// ParseTimestamp accepts milliseconds since the epoch, an RFC 3339 time or
// a YYYY-MM-DD date (UTC midnight).
func ParseTimestamp(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Before(time.Unix(0, 0)) {
				return 0, fmt.Errorf("timestamp %q before the epoch", s)
			}
			return uint64(t.UnixMilli()), nil
		}
	}
	return 0, fmt.Errorf("cannot parse timestamp %q", s)
}
