package buffer

import (
	"math/big"

	"vaultcore/core/events"
	"vaultcore/crypto"
	nativecommon "vaultcore/native/common"
	"vaultcore/observability"
)

// AddLiquidity deposits base and derived amounts into the buffer and issues
// proportional shares. The first deposit of a pair initializes the buffer and
// permanently locks the minimum-supply floor. Issuance rounds down, so
// existing holders are never diluted.
func (e *Engine) AddLiquidity(owner crypto.Address, id BufferID, baseIn, derivedIn *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()
	if err := nativecommon.Guard(e.pauses, SwitchDeposit); err != nil {
		return nil, ErrBufferPaused
	}
	if !id.Valid() {
		return nil, ErrWrongUnderlyingToken
	}
	baseIn, derivedIn = cloneBigInt(baseIn), cloneBigInt(derivedIn)
	if baseIn.Sign() < 0 || derivedIn.Sign() < 0 {
		return nil, errInvalidAmount
	}
	if baseIn.Sign() == 0 && derivedIn.Sign() == 0 {
		return nil, errInvalidAmount
	}

	buf, err := e.loadBuffer(id)
	if err != nil {
		return nil, err
	}
	rate, err := e.currentRate(id)
	if err != nil {
		return nil, err
	}
	if buf == nil || !buf.Initialized {
		return e.initialize(owner, id, baseIn, derivedIn, rate)
	}
	return e.addLiquidity(owner, id, buf, baseIn, derivedIn, rate)
}

// initialize creates the buffer record, registers the asset pair and mints the
// minimum-supply floor to the null owner where it stays unredeemable forever.
func (e *Engine) initialize(owner crypto.Address, id BufferID, baseIn, derivedIn, rate *big.Int) (*big.Int, error) {
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	if existing, err := e.state.GetBuffer(id); err != nil {
		return nil, err
	} else if existing != nil && existing.Initialized {
		return nil, ErrBufferAlreadyInitialized
	}
	floor := cloneBigInt(e.params.MinimumTotalSupply)
	value := invariantValue(baseIn, derivedIn, rate)
	issued := new(big.Int).Sub(value, floor)
	if issued.Sign() <= 0 {
		return nil, ErrBelowMinimumSupply
	}
	word, err := e.packOrReject(id, baseIn, derivedIn)
	if err != nil {
		return nil, err
	}

	journal := newJournal(e.state)
	if err := journal.transferToken(id.Base, owner, e.vaultAddress, baseIn); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	if err := journal.transferToken(id.Derived, owner, e.vaultAddress, derivedIn); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	if err := journal.setShares(id, crypto.NullAddress(), floor); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	if err := journal.setShares(id, owner, issued); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	created := &Buffer{
		ID:            id,
		Balances:      word,
		TotalShares:   value,
		MinimumSupply: floor,
		Initialized:   true,
	}
	if err := e.state.PutBuffer(id, created); err != nil {
		journal.revert(e.logger())
		return nil, err
	}

	e.emit(events.BufferSharesMinted{
		BaseAsset:    id.Base,
		DerivedAsset: id.Derived,
		Owner:        owner,
		Shares:       issued,
		TotalShares:  value,
	})
	observability.Buffer().RecordSharesMinted(id.String())
	e.logger().Info("buffer initialized",
		"buffer", id.String(),
		"owner", owner.String(),
		"shares", issued.String(),
		"floor", floor.String(),
	)
	return issued, nil
}

func (e *Engine) addLiquidity(owner crypto.Address, id BufferID, buf *Buffer, baseIn, derivedIn, rate *big.Int) (*big.Int, error) {
	base, derived := UnpackBalances(buf.Balances)
	invariantBefore := invariantValue(base, derived, rate)
	if invariantBefore.Sign() <= 0 {
		return nil, ErrZeroShares
	}
	depositValue := invariantValue(baseIn, derivedIn, rate)
	issued := new(big.Int).Mul(buf.TotalShares, depositValue)
	issued.Quo(issued, invariantBefore)
	if issued.Sign() == 0 {
		return nil, ErrZeroShares
	}
	word, err := e.packOrReject(id, new(big.Int).Add(base, baseIn), new(big.Int).Add(derived, derivedIn))
	if err != nil {
		return nil, err
	}

	ownerShares, err := e.SharesOf(id, owner)
	if err != nil {
		return nil, err
	}

	journal := newJournal(e.state)
	if err := journal.transferToken(id.Base, owner, e.vaultAddress, baseIn); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	if err := journal.transferToken(id.Derived, owner, e.vaultAddress, derivedIn); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	if err := journal.setShares(id, owner, new(big.Int).Add(ownerShares, issued)); err != nil {
		journal.revert(e.logger())
		return nil, err
	}
	updated := buf.Copy()
	updated.Balances = word
	updated.TotalShares = new(big.Int).Add(buf.TotalShares, issued)
	if err := e.state.PutBuffer(id, updated); err != nil {
		journal.revert(e.logger())
		return nil, err
	}

	e.emit(events.BufferSharesMinted{
		BaseAsset:    id.Base,
		DerivedAsset: id.Derived,
		Owner:        owner,
		Shares:       issued,
		TotalShares:  updated.TotalShares,
	})
	observability.Buffer().RecordSharesMinted(id.String())
	e.logger().Info("buffer liquidity added",
		"buffer", id.String(),
		"owner", owner.String(),
		"shares", issued.String(),
	)
	return issued, nil
}

// RemoveLiquidity burns shares and pays out the proportional slice of both
// balances, rounded down so residual dust stays in the buffer. It is never
// blocked by the pause switches and never consults the rate oracle or the
// adapter: exit must not depend on possibly-compromised external state.
func (e *Engine) RemoveLiquidity(owner crypto.Address, id BufferID, sharesToBurn *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, nil, err
	}
	defer e.lock.Release()
	if sharesToBurn == nil || sharesToBurn.Sign() <= 0 {
		return nil, nil, ErrZeroShares
	}
	buf, err := e.loadBuffer(id)
	if err != nil {
		return nil, nil, err
	}
	if buf == nil || !buf.Initialized {
		return nil, nil, ErrBufferNotInitialized
	}
	// The floor minted to the null owner is unredeemable.
	if owner.IsZero() {
		return nil, nil, ErrInsufficientShares
	}
	ownerShares, err := e.SharesOf(id, owner)
	if err != nil {
		return nil, nil, err
	}
	if ownerShares.Cmp(sharesToBurn) < 0 {
		return nil, nil, ErrInsufficientShares
	}

	base, derived := UnpackBalances(buf.Balances)
	baseOut := new(big.Int).Mul(base, sharesToBurn)
	baseOut.Quo(baseOut, buf.TotalShares)
	derivedOut := new(big.Int).Mul(derived, sharesToBurn)
	derivedOut.Quo(derivedOut, buf.TotalShares)

	word, err := PackBalances(new(big.Int).Sub(base, baseOut), new(big.Int).Sub(derived, derivedOut))
	if err != nil {
		return nil, nil, err
	}

	journal := newJournal(e.state)
	if err := journal.transferToken(id.Base, e.vaultAddress, owner, baseOut); err != nil {
		journal.revert(e.logger())
		return nil, nil, err
	}
	if err := journal.transferToken(id.Derived, e.vaultAddress, owner, derivedOut); err != nil {
		journal.revert(e.logger())
		return nil, nil, err
	}
	if err := journal.setShares(id, owner, new(big.Int).Sub(ownerShares, sharesToBurn)); err != nil {
		journal.revert(e.logger())
		return nil, nil, err
	}
	updated := buf.Copy()
	updated.Balances = word
	updated.TotalShares = new(big.Int).Sub(buf.TotalShares, sharesToBurn)
	if err := e.state.PutBuffer(id, updated); err != nil {
		journal.revert(e.logger())
		return nil, nil, err
	}

	e.emit(events.BufferSharesBurned{
		BaseAsset:    id.Base,
		DerivedAsset: id.Derived,
		Owner:        owner,
		Shares:       sharesToBurn,
		TotalShares:  updated.TotalShares,
	})
	observability.Buffer().RecordSharesBurned(id.String())
	e.logger().Info("buffer liquidity removed",
		"buffer", id.String(),
		"owner", owner.String(),
		"shares", sharesToBurn.String(),
		"baseOut", baseOut.String(),
		"derivedOut", derivedOut.String(),
	)
	return baseOut, derivedOut, nil
}
