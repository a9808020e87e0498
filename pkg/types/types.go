package types

import (
	"encoding/hex"
	"time"
)

// Point is one coordinate of the search space.
type Point struct {
	TimestampMs uint64
	Sequence    uint32
	Variant     string // engine variant name, empty for families without one
	Family      string
}

// Candidate is a derived key for one point. It lives only as long as it takes
// to derive its addresses and test them.
type Candidate struct {
	Point
	PrivateKey [32]byte
	Mnemonic   string // set by the mnemonic family instead of PrivateKey
}

// PrivateKeyHex returns the fixed-width lowercase hex form of the key.
func (c *Candidate) PrivateKeyHex() string {
	return hex.EncodeToString(c.PrivateKey[:])
}

// Outcome classifies a positive membership test after verification.
type Outcome int

const (
	OutcomeUnverified Outcome = iota
	OutcomeConfirmed
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unverified"
	}
}

// Verification is the authoritative check's verdict for one address.
type Verification struct {
	Outcome Outcome
	Balance int64  // satoshis, set when confirmed
	Reason  string // set when unverified
}

// ScanResult is created only for a membership hit.
type ScanResult struct {
	Point
	PrivateKeyHex  string
	Mnemonic       string
	DerivedAddress string
	AddressKind    string
	MembershipHit  bool
	Verification   Verification
	FoundAt        time.Time
}

// Summary reports the outcome of one scan run.
type Summary struct {
	Candidates  int64
	Addresses   int64
	Hits        int64
	Confirmed   int64
	Unverified  int64
	Empty       int64
	DeriveError int64
	Duration    time.Duration

	// ResumeFrom is the lowest timestamp not fully processed, or End+1
	// when the range completed.
	ResumeFrom uint64
	Completed  bool
}
