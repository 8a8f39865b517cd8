package buffer

import (
	"errors"
	"math/big"
)

// Pause switch names consumed by the engine's guards. Withdrawals are never
// guarded: holders must always be able to exit.
const (
	SwitchDeposit = "buffer.deposit"
	SwitchConvert = "buffer.convert"
)

// Params groups the governance-controlled settings of the buffer module.
type Params struct {
	// MinimumTotalSupply is the share floor minted to the null owner when a
	// buffer is first initialized. It can never be redeemed, so a buffer's
	// total shares never fall below it.
	MinimumTotalSupply *big.Int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{MinimumTotalSupply: big.NewInt(1_000_000)}
}

// Validate rejects parameter sets that would allow a buffer to be fully
// drained.
func (p Params) Validate() error {
	if p.MinimumTotalSupply == nil || p.MinimumTotalSupply.Sign() <= 0 {
		return errors.New("buffer params: minimum total supply must be positive")
	}
	return nil
}
