package buffer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// BufferID identifies a buffer by its registered (base, derived) asset pair.
// The pair is fixed at first initialization and never changes afterwards.
type BufferID struct {
	Base    string
	Derived string
}

// NewBufferID normalizes the asset tickers into a canonical identifier.
func NewBufferID(base, derived string) BufferID {
	return BufferID{
		Base:    normalizeAsset(base),
		Derived: normalizeAsset(derived),
	}
}

func (id BufferID) String() string {
	return fmt.Sprintf("%s/%s", id.Base, id.Derived)
}

// Valid reports whether both sides of the pair are set and distinct.
func (id BufferID) Valid() bool {
	return id.Base != "" && id.Derived != "" && id.Base != id.Derived
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// Buffer captures the persisted accounting state for one asset pair. The two
// balances live in a single packed word; shares are tracked per owner in
// separate records.
type Buffer struct {
	ID            BufferID
	Balances      *uint256.Int
	TotalShares   *big.Int
	MinimumSupply *big.Int
	Initialized   bool
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (b *Buffer) Copy() *Buffer {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Balances != nil {
		clone.Balances = new(uint256.Int).Set(b.Balances)
	}
	if b.TotalShares != nil {
		clone.TotalShares = new(big.Int).Set(b.TotalShares)
	}
	if b.MinimumSupply != nil {
		clone.MinimumSupply = new(big.Int).Set(b.MinimumSupply)
	}
	return &clone
}

// ConversionDirection selects between wrapping base into derived and the
// reverse.
type ConversionDirection uint8

const (
	DirectionWrap ConversionDirection = iota
	DirectionUnwrap
)

func (d ConversionDirection) String() string {
	switch d {
	case DirectionWrap:
		return "wrap"
	case DirectionUnwrap:
		return "unwrap"
	}
	return "unknown"
}

// ConversionExactness states whether Amount fixes the input or the output side
// of a conversion.
type ConversionExactness uint8

const (
	ExactIn ConversionExactness = iota
	ExactOut
)

func (e ConversionExactness) String() string {
	if e == ExactOut {
		return "exact_out"
	}
	return "exact_in"
}

// ConversionRequest describes one wrap or unwrap call. For exact-in requests
// Limit is the minimum acceptable output (nil means unconstrained); for
// exact-out requests Limit is the maximum input the caller will spend and is
// mandatory. Deadline is a unix timestamp checked before the external adapter
// is engaged; zero disables the check.
type ConversionRequest struct {
	Direction ConversionDirection
	Exactness ConversionExactness
	Amount    *big.Int
	Limit     *big.Int
	Deadline  int64
}

// ConversionResult reports the settled amounts, split by how much of the
// request each leg served.
type ConversionResult struct {
	AmountIn         *big.Int
	AmountOut        *big.Int
	BufferAmountIn   *big.Int
	BufferAmountOut  *big.Int
	AdapterAmountIn  *big.Int
	AdapterAmountOut *big.Int
}
