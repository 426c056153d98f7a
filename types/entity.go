package types

import "time"

// Address is an opaque account identifier for a transaction participant:
// a business, an investor, the platform, or the admin. Signature verification
// for an Address is performed by the host; Ledger treats it as a trusted
// label.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// Entity is the base type for Ledger entities with timestamps.
// Embed this in domain types to get timestamp handling.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity with the given creation time.
func NewEntity(now time.Time) Entity {
	return Entity{
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Touch updates the UpdatedAt timestamp.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}
