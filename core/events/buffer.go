package events

import (
	"math/big"
	"strconv"

	"vaultcore/core/types"
	"vaultcore/crypto"
)

const (
	TypeBufferSharesMinted      = "buffer.shares_minted"
	TypeBufferSharesBurned      = "buffer.shares_burned"
	TypeBufferOverflowRejected  = "buffer.overflow_rejected"
	TypeBufferConversionSettled = "buffer.conversion_settled"
	TypeBufferPauseChanged      = "buffer.pause_changed"
)

// BufferSharesMinted is emitted whenever a liquidity deposit issues new shares.
type BufferSharesMinted struct {
	BaseAsset    string
	DerivedAsset string
	Owner        crypto.Address
	Shares       *big.Int
	TotalShares  *big.Int
}

func (BufferSharesMinted) EventType() string { return TypeBufferSharesMinted }

func (e BufferSharesMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeBufferSharesMinted,
		Attributes: map[string]string{
			"baseAsset":    normalizeAsset(e.BaseAsset),
			"derivedAsset": normalizeAsset(e.DerivedAsset),
			"owner":        e.Owner.String(),
			"shares":       formatAmount(e.Shares),
			"totalShares":  formatAmount(e.TotalShares),
		},
	}
}

// BufferSharesBurned is emitted whenever a withdrawal burns shares.
type BufferSharesBurned struct {
	BaseAsset    string
	DerivedAsset string
	Owner        crypto.Address
	Shares       *big.Int
	TotalShares  *big.Int
}

func (BufferSharesBurned) EventType() string { return TypeBufferSharesBurned }

func (e BufferSharesBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeBufferSharesBurned,
		Attributes: map[string]string{
			"baseAsset":    normalizeAsset(e.BaseAsset),
			"derivedAsset": normalizeAsset(e.DerivedAsset),
			"owner":        e.Owner.String(),
			"shares":       formatAmount(e.Shares),
			"totalShares":  formatAmount(e.TotalShares),
		},
	}
}

// BufferOverflowRejected is emitted when a balance update would exceed the
// packed field width and the operation is aborted.
type BufferOverflowRejected struct {
	BaseAsset    string
	DerivedAsset string
	Field        string
	Value        *big.Int
}

func (BufferOverflowRejected) EventType() string { return TypeBufferOverflowRejected }

func (e BufferOverflowRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeBufferOverflowRejected,
		Attributes: map[string]string{
			"baseAsset":    normalizeAsset(e.BaseAsset),
			"derivedAsset": normalizeAsset(e.DerivedAsset),
			"field":        e.Field,
			"value":        formatAmount(e.Value),
		},
	}
}

// BufferConversionSettled is emitted after a wrap or unwrap has passed
// settlement verification and committed.
type BufferConversionSettled struct {
	BaseAsset     string
	DerivedAsset  string
	Direction     string
	AmountIn      *big.Int
	AmountOut     *big.Int
	FromBufferIn  *big.Int
	FromAdapterIn *big.Int
}

func (BufferConversionSettled) EventType() string { return TypeBufferConversionSettled }

func (e BufferConversionSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeBufferConversionSettled,
		Attributes: map[string]string{
			"baseAsset":     normalizeAsset(e.BaseAsset),
			"derivedAsset":  normalizeAsset(e.DerivedAsset),
			"direction":     e.Direction,
			"amountIn":      formatAmount(e.AmountIn),
			"amountOut":     formatAmount(e.AmountOut),
			"fromBufferIn":  formatAmount(e.FromBufferIn),
			"fromAdapterIn": formatAmount(e.FromAdapterIn),
		},
	}
}

// BufferPauseChanged is emitted when a privileged actor toggles one of the
// pause switches.
type BufferPauseChanged struct {
	Switch string
	Paused bool
	Actor  crypto.Address
}

func (BufferPauseChanged) EventType() string { return TypeBufferPauseChanged }

func (e BufferPauseChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeBufferPauseChanged,
		Attributes: map[string]string{
			"switch": e.Switch,
			"paused": strconv.FormatBool(e.Paused),
			"actor":  e.Actor.String(),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
