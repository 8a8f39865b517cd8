package buffer

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Both balances of a buffer share one 256-bit word: the base balance occupies
// the low 128 bits and the derived balance the high 128 bits. Every mutation
// goes through the pack helpers so a value that does not fit its field aborts
// the operation instead of truncating.
const balanceFieldBits = 128

var balanceFieldMask = func() *uint256.Int {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), balanceFieldBits)
	return mask.Sub(mask, uint256.NewInt(1))
}()

func packField(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 || v.BitLen() > balanceFieldBits {
		return nil, ErrBalanceOverflow
	}
	field, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	return field, nil
}

// PackBalances encodes the two balances into a single word. Either value
// exceeding the field width fails with ErrBalanceOverflow.
func PackBalances(base, derived *big.Int) (*uint256.Int, error) {
	lo, err := packField(base)
	if err != nil {
		return nil, err
	}
	hi, err := packField(derived)
	if err != nil {
		return nil, err
	}
	word := new(uint256.Int).Lsh(hi, balanceFieldBits)
	return word.Or(word, lo), nil
}

// UnpackBalances decodes the packed word back into (base, derived). It is the
// lossless inverse of PackBalances for all valid inputs.
func UnpackBalances(word *uint256.Int) (*big.Int, *big.Int) {
	if word == nil {
		return big.NewInt(0), big.NewInt(0)
	}
	lo := new(uint256.Int).And(word, balanceFieldMask)
	hi := new(uint256.Int).Rsh(word, balanceFieldBits)
	return lo.ToBig(), hi.ToBig()
}

// SetBaseBalance replaces the base field of the word, leaving the derived
// field untouched.
func SetBaseBalance(word *uint256.Int, base *big.Int) (*uint256.Int, error) {
	lo, err := packField(base)
	if err != nil {
		return nil, err
	}
	updated := new(uint256.Int)
	if word != nil {
		updated.Set(word)
	}
	cleared := new(uint256.Int).Not(balanceFieldMask)
	updated.And(updated, cleared)
	return updated.Or(updated, lo), nil
}

// SetDerivedBalance replaces the derived field of the word, leaving the base
// field untouched.
func SetDerivedBalance(word *uint256.Int, derived *big.Int) (*uint256.Int, error) {
	hi, err := packField(derived)
	if err != nil {
		return nil, err
	}
	updated := new(uint256.Int)
	if word != nil {
		updated.Set(word)
	}
	updated.And(updated, balanceFieldMask)
	return updated.Or(updated, new(uint256.Int).Lsh(hi, balanceFieldBits)), nil
}
