package buffer

import (
	"math/big"

	"vaultcore/crypto"
)

// ConversionAdapter is the capability surface of the derived-asset contract.
// It is untrusted: every return value is treated as a claim and verified
// against measured balance movements before any state is committed, and any
// token approval granted to it is reset to zero after each call.
type ConversionAdapter interface {
	// Address identifies the adapter as a token-ledger participant. The
	// allowance granted ahead of an external call is keyed on it.
	Address() crypto.Address
	// UnderlyingAsset and WrappedAsset report the pair the adapter claims
	// to convert between. Deposit and conversion paths reject adapters
	// whose pair does not match the buffer's registered pair.
	UnderlyingAsset() string
	WrappedAsset() string

	// ConvertToWrapped and ConvertToUnderlying quote a shallow conversion
	// at the adapter's current rate without moving tokens.
	ConvertToWrapped(base *big.Int) (*big.Int, error)
	ConvertToUnderlying(derived *big.Int) (*big.Int, error)

	// DepositExact wraps baseIn and reports the derived amount produced.
	DepositExact(baseIn *big.Int) (*big.Int, error)
	// MintExact produces exactly derivedWanted and reports the base spent.
	MintExact(derivedWanted *big.Int) (*big.Int, error)
	// RedeemExact unwraps derivedIn and reports the base amount produced.
	RedeemExact(derivedIn *big.Int) (*big.Int, error)
	// WithdrawExact produces exactly baseWanted and reports the derived
	// spent.
	WithdrawExact(baseWanted *big.Int) (*big.Int, error)
}

// RateOracle supplies the derived asset's exchange rate in base-asset terms,
// scaled by 1e18. The engine queries it fresh on every invariant computation;
// rates are never cached across operations.
type RateOracle interface {
	CurrentRate(derivedAsset string) (*big.Int, error)
}
