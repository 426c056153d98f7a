// Package id defines kind-tagged 32-byte identity values for all Ledger
// entities.
//
// Every entity uses a single ID struct with a kind prefix that identifies the
// entity type. The 32-byte payload embeds a timestamp and a monotonic counter
// so identifiers are time-ordered and collision-free without retries. The
// string form is "prefix_suffix" where the suffix is the hex-encoded payload.
package id

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Size is the payload length of every ID in bytes.
const Size = 32

// Kind identifies the entity type encoded in an ID.
type Kind string

// Kind constants for all Ledger entity types.
const (
	KindInvoice    Kind = "inv" // Financing invoice
	KindBid        Kind = "bid" // Investor bid
	KindInvestment Kind = "ivt" // Funding record
	KindEscrow     Kind = "esc" // Escrow hold
	KindAudit      Kind = "aud" // Audit log entry
	KindBackup     Kind = "bkp" // Invoice snapshot
)

// kindTag returns the two payload bytes that tag a kind inside the raw ID.
func kindTag(k Kind) [2]byte {
	switch k {
	case KindInvoice:
		return [2]byte{0x1F, 0x01}
	case KindBid:
		return [2]byte{0xB1, 0xD0}
	case KindInvestment:
		return [2]byte{0x17, 0xE5}
	case KindEscrow:
		return [2]byte{0xE5, 0xC0}
	case KindAudit:
		return [2]byte{0xAD, 0x17}
	case KindBackup:
		return [2]byte{0xB4, 0xC4}
	default:
		return [2]byte{0x00, 0x00}
	}
}

// ID is the primary identifier type for all Ledger entities. It pairs a Kind
// with a fixed 32-byte payload and renders as "kind_hex".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	kind  Kind
	raw   [Size]byte
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// FromBytes constructs an ID of the given kind from a raw 32-byte payload.
func FromBytes(kind Kind, raw [Size]byte) ID {
	return ID{kind: kind, raw: raw, valid: true}
}

// Parse parses an ID string (e.g. "inv_0000...") into an ID.
// Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	sep := strings.IndexByte(s, '_')
	if sep <= 0 || sep == len(s)-1 {
		return Nil, fmt.Errorf("id: parse %q: missing kind separator", s)
	}

	payload, err := hex.DecodeString(s[sep+1:])
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	if len(payload) != Size {
		return Nil, fmt.Errorf("id: parse %q: payload is %d bytes, want %d", s, len(payload), Size)
	}

	var raw [Size]byte
	copy(raw[:], payload)

	return ID{kind: Kind(s[:sep]), raw: raw, valid: true}, nil
}

// ParseKind parses an ID string and validates that its kind matches the
// expected value.
func ParseKind(s string, expected Kind) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Kind() != expected {
		return Nil, fmt.Errorf("id: expected kind %q, got %q", expected, parsed.Kind())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Generators
// ──────────────────────────────────────────────────

// Generator produces unique IDs. Implementations must be safe for use from
// multiple goroutines.
type Generator interface {
	Next(kind Kind) ID
}

// Sequence is a deterministic counter-backed Generator. The counter gives a
// hard upper bound on generation cost (no collision-retry loop) and can be
// seeded from persisted state so identifiers stay unique across restarts.
type Sequence struct {
	counter atomic.Uint64
	now     func() time.Time
}

// NewSequence creates a Sequence generator starting after seed. Pass the last
// persisted counter value to resume; pass 0 for a fresh system.
func NewSequence(seed uint64) *Sequence {
	s := &Sequence{now: time.Now}
	s.counter.Store(seed)
	return s
}

// Next implements Generator.
func (s *Sequence) Next(kind Kind) ID {
	n := s.counter.Add(1)
	ts := uint64(s.now().Unix())

	var raw [Size]byte
	tag := kindTag(kind)
	raw[0] = tag[0]
	raw[1] = tag[1]
	binary.BigEndian.PutUint64(raw[2:10], ts)
	binary.BigEndian.PutUint64(raw[10:18], n)
	for i := 18; i < Size; i++ {
		raw[i] = byte((ts + n) % 256)
	}

	return FromBytes(kind, raw)
}

// Counter returns the last issued counter value, for persistence.
func (s *Sequence) Counter() uint64 { return s.counter.Load() }

// Random is a Generator that fills the payload from crypto/rand. Collisions
// are cryptographically improbable but generation cost is not deterministic;
// prefer Sequence where replay determinism matters.
type Random struct{}

// NewRandom creates a Random generator.
func NewRandom() *Random { return &Random{} }

// Next implements Generator.
func (r *Random) Next(kind Kind) ID {
	var raw [Size]byte
	tag := kindTag(kind)
	raw[0] = tag[0]
	raw[1] = tag[1]
	if _, err := rand.Read(raw[2:]); err != nil {
		panic(fmt.Sprintf("id: crypto/rand unavailable: %v", err))
	}

	return FromBytes(kind, raw)
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full string representation (kind_hex).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return string(i.kind) + "_" + hex.EncodeToString(i.raw[:])
}

// Kind returns the kind component of this ID.
func (i ID) Kind() Kind {
	if !i.valid {
		return ""
	}

	return i.kind
}

// Bytes returns the raw 32-byte payload.
func (i ID) Bytes() [Size]byte { return i.raw }

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// Equal reports whether two IDs are identical.
func (i ID) Equal(other ID) bool {
	return i.valid == other.valid && i.kind == other.kind && i.raw == other.raw
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
