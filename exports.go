package ledger

import (
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Re-export common types for convenience so users don't have to import the
// types and id packages.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// ID is the primary identifier type for all Ledger entities.
type ID = id.ID

// Kind identifies the entity type encoded in an ID.
type Kind = id.Kind

// Re-export Money constructors
var (
	USD  = types.USD
	EUR  = types.EUR
	GBP  = types.GBP
	Zero = types.Zero
	Sum  = types.Sum
)
