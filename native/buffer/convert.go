package buffer

import (
	"errors"
	"math/big"

	"vaultcore/core/events"
	"vaultcore/crypto"
	nativecommon "vaultcore/native/common"
	"vaultcore/observability"
)

// Wrap converts base into derived, serving as much of the request as possible
// from buffer liquidity before routing the remainder to the adapter.
func (e *Engine) Wrap(caller crypto.Address, id BufferID, adapter ConversionAdapter, req ConversionRequest) (*ConversionResult, error) {
	req.Direction = DirectionWrap
	return e.convert(caller, id, adapter, req)
}

// Unwrap converts derived back into base with the same buffer-first policy.
func (e *Engine) Unwrap(caller crypto.Address, id BufferID, adapter ConversionAdapter, req ConversionRequest) (*ConversionResult, error) {
	req.Direction = DirectionUnwrap
	return e.convert(caller, id, adapter, req)
}

func (e *Engine) convert(caller crypto.Address, id BufferID, adapter ConversionAdapter, req ConversionRequest) (*ConversionResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.lock.Acquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()
	if err := nativecommon.Guard(e.pauses, SwitchConvert); err != nil {
		return nil, ErrBufferPaused
	}
	if adapter == nil {
		return nil, errNilAdapter
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if req.Exactness == ExactOut && (req.Limit == nil || req.Limit.Sign() <= 0) {
		return nil, errLimitRequired
	}
	buf, err := e.loadBuffer(id)
	if err != nil {
		return nil, err
	}
	if buf == nil || !buf.Initialized {
		return nil, ErrBufferNotInitialized
	}
	if normalizeAsset(adapter.UnderlyingAsset()) != id.Base ||
		normalizeAsset(adapter.WrappedAsset()) != id.Derived {
		return nil, ErrWrongUnderlyingToken
	}
	// The transaction deadline is the only staleness control; it is checked
	// before the adapter can be engaged.
	if req.Deadline > 0 && e.now() > req.Deadline {
		return nil, ErrDeadlineExpired
	}
	rate, err := e.currentRate(id)
	if err != nil {
		return nil, err
	}

	journal := newJournal(e.state)
	result, err := e.convertLocked(journal, caller, id, adapter, req, buf, rate)
	if err != nil {
		journal.revert(e.logger())
		// The standing approval stays zero even though the journal
		// restored everything else.
		if putErr := e.state.PutAllowance(inAssetFor(req.Direction, id), e.vaultAddress, adapter.Address(), big.NewInt(0)); putErr != nil {
			e.logger().Error("buffer approval reset failed", "err", putErr)
		}
		if errors.Is(err, ErrBalanceNotSettled) {
			observability.Buffer().RecordSettlementFailure()
		}
		return nil, err
	}

	source := "buffer"
	switch {
	case result.BufferAmountOut.Sign() == 0 && result.AdapterAmountOut.Sign() > 0:
		source = "adapter"
	case result.AdapterAmountOut.Sign() > 0:
		source = "split"
	}
	e.emit(events.BufferConversionSettled{
		BaseAsset:     id.Base,
		DerivedAsset:  id.Derived,
		Direction:     req.Direction.String(),
		AmountIn:      result.AmountIn,
		AmountOut:     result.AmountOut,
		FromBufferIn:  result.BufferAmountIn,
		FromAdapterIn: result.AdapterAmountIn,
	})
	observability.Buffer().RecordConversion(req.Direction.String(), source)
	e.logger().Info("buffer conversion settled",
		"buffer", id.String(),
		"direction", req.Direction.String(),
		"amountIn", result.AmountIn.String(),
		"amountOut", result.AmountOut.String(),
		"source", source,
	)
	return result, nil
}

func (e *Engine) convertLocked(j *stateJournal, caller crypto.Address, id BufferID, adapter ConversionAdapter, req ConversionRequest, buf *Buffer, rate *big.Int) (*ConversionResult, error) {
	inAsset, outAsset := id.Base, id.Derived
	if req.Direction == DirectionUnwrap {
		inAsset, outAsset = id.Derived, id.Base
	}
	base, derived := UnpackBalances(buf.Balances)
	availOut := derived
	if req.Direction == DirectionUnwrap {
		availOut = base
	}

	var bufferIn, bufferOut, totalIn, totalOut *big.Int
	adapterIn, adapterOut := big.NewInt(0), big.NewInt(0)

	switch req.Exactness {
	case ExactOut:
		amountOut := cloneBigInt(req.Amount)
		maxIn := cloneBigInt(req.Limit)
		bufferOut = new(big.Int).Set(amountOut)
		if bufferOut.Cmp(availOut) > 0 {
			bufferOut.Set(availOut)
		}
		bufferIn = quoteInUp(req.Direction, bufferOut, rate)
		if bufferIn.Cmp(maxIn) > 0 {
			return nil, ErrAmountInAboveMax
		}
		// The caller funds the full limit up front so the adapter can
		// draw on vault balances; the unspent remainder is refunded
		// after settlement.
		if err := j.transferToken(inAsset, caller, e.vaultAddress, maxIn); err != nil {
			return nil, err
		}
		remainderOut := new(big.Int).Sub(amountOut, bufferOut)
		if remainderOut.Sign() > 0 {
			budget := new(big.Int).Sub(maxIn, bufferIn)
			if budget.Sign() <= 0 {
				return nil, ErrAmountInAboveMax
			}
			var err error
			adapterIn, adapterOut, err = e.callAdapter(j, adapter, req, remainderOut, budget, inAsset, outAsset)
			if err != nil {
				return nil, err
			}
		}
		totalIn = new(big.Int).Add(bufferIn, adapterIn)
		if totalIn.Cmp(maxIn) > 0 {
			return nil, ErrAmountInAboveMax
		}
		if refund := new(big.Int).Sub(maxIn, totalIn); refund.Sign() > 0 {
			if err := j.transferToken(inAsset, e.vaultAddress, caller, refund); err != nil {
				return nil, err
			}
		}
		totalOut = amountOut
	default: // ExactIn
		amountIn := cloneBigInt(req.Amount)
		wanted := quoteOut(req.Direction, amountIn, rate)
		if availOut.Cmp(wanted) >= 0 {
			bufferOut = wanted
			bufferIn = new(big.Int).Set(amountIn)
		} else {
			// Deterministic split: the buffer always serves its full
			// available balance before anything reaches the adapter.
			bufferOut = cloneBigInt(availOut)
			bufferIn = quoteInUp(req.Direction, bufferOut, rate)
			if bufferIn.Cmp(amountIn) > 0 {
				bufferIn.Set(amountIn)
			}
		}
		if err := j.transferToken(inAsset, caller, e.vaultAddress, amountIn); err != nil {
			return nil, err
		}
		remainderIn := new(big.Int).Sub(amountIn, bufferIn)
		if remainderIn.Sign() > 0 {
			var err error
			adapterIn, adapterOut, err = e.callAdapter(j, adapter, req, remainderIn, remainderIn, inAsset, outAsset)
			if err != nil {
				return nil, err
			}
		}
		totalIn = amountIn
		totalOut = new(big.Int).Add(bufferOut, adapterOut)
		if req.Limit != nil && totalOut.Cmp(req.Limit) < 0 {
			return nil, ErrAmountOutBelowMin
		}
	}

	if err := j.transferToken(outAsset, e.vaultAddress, caller, totalOut); err != nil {
		return nil, err
	}

	newBase, newDerived := new(big.Int), new(big.Int)
	if req.Direction == DirectionWrap {
		newBase.Add(base, bufferIn)
		newDerived.Sub(derived, bufferOut)
	} else {
		newBase.Sub(base, bufferOut)
		newDerived.Add(derived, bufferIn)
	}
	word, err := e.packOrReject(id, newBase, newDerived)
	if err != nil {
		return nil, err
	}
	updated := buf.Copy()
	updated.Balances = word
	if err := j.setBuffer(id, updated); err != nil {
		return nil, err
	}

	return &ConversionResult{
		AmountIn:         totalIn,
		AmountOut:        totalOut,
		BufferAmountIn:   bufferIn,
		BufferAmountOut:  bufferOut,
		AdapterAmountIn:  adapterIn,
		AdapterAmountOut: adapterOut,
	}, nil
}

// callAdapter routes the residual of a conversion through the external
// adapter. The adapter's return value is only a claim: the vault's own
// before/after balances decide whether the call settled, and the measured
// deltas, not the claim, are what the conversion accounts for. The token
// approval granted for the call is reset to zero whether or not the call
// succeeds.
func (e *Engine) callAdapter(j *stateJournal, adapter ConversionAdapter, req ConversionRequest, amount, allowanceCap *big.Int, inAsset, outAsset string) (*big.Int, *big.Int, error) {
	vault := e.vaultAddress
	spender := adapter.Address()

	preIn, err := e.state.GetTokenBalance(inAsset, vault)
	if err != nil {
		return nil, nil, err
	}
	preIn = cloneBigInt(preIn)
	preOut, err := e.state.GetTokenBalance(outAsset, vault)
	if err != nil {
		return nil, nil, err
	}
	preOut = cloneBigInt(preOut)

	if err := j.setAllowance(inAsset, vault, spender, cloneBigInt(allowanceCap)); err != nil {
		return nil, nil, err
	}

	var claimed *big.Int
	var callErr error
	switch {
	case req.Direction == DirectionWrap && req.Exactness == ExactIn:
		claimed, callErr = adapter.DepositExact(cloneBigInt(amount))
	case req.Direction == DirectionWrap && req.Exactness == ExactOut:
		claimed, callErr = adapter.MintExact(cloneBigInt(amount))
	case req.Direction == DirectionUnwrap && req.Exactness == ExactIn:
		claimed, callErr = adapter.RedeemExact(cloneBigInt(amount))
	default:
		claimed, callErr = adapter.WithdrawExact(cloneBigInt(amount))
	}

	if err := j.setAllowance(inAsset, vault, spender, big.NewInt(0)); err != nil {
		return nil, nil, err
	}
	if callErr != nil {
		return nil, nil, callErr
	}
	if claimed == nil || claimed.Sign() < 0 {
		return nil, nil, ErrBalanceNotSettled
	}

	postIn, err := e.state.GetTokenBalance(inAsset, vault)
	if err != nil {
		return nil, nil, err
	}
	postOut, err := e.state.GetTokenBalance(outAsset, vault)
	if err != nil {
		return nil, nil, err
	}
	taken := new(big.Int).Sub(preIn, cloneBigInt(postIn))
	delivered := new(big.Int).Sub(cloneBigInt(postOut), preOut)
	if taken.Sign() < 0 || delivered.Sign() < 0 {
		return nil, nil, ErrBalanceNotSettled
	}

	// Exact-in calls claim the output and commit the input; exact-out calls
	// claim the input and promise the requested output. The claim only sets
	// the settlement floor: anything the adapter actually took beyond it is
	// still charged, so a take-vs-claim gap can never turn into a refund paid
	// from reserves.
	committedIn, promisedOut := amount, claimed
	if req.Exactness == ExactOut {
		committedIn, promisedOut = claimed, amount
	}
	if taken.Cmp(committedIn) < 0 || taken.Cmp(allowanceCap) > 0 {
		return nil, nil, ErrBalanceNotSettled
	}
	if delivered.Cmp(promisedOut) < 0 {
		return nil, nil, ErrBalanceNotSettled
	}
	return taken, delivered, nil
}

func quoteOut(direction ConversionDirection, amountIn, rate *big.Int) *big.Int {
	if direction == DirectionUnwrap {
		return toBaseValue(amountIn, rate)
	}
	return toDerivedValue(amountIn, rate)
}

func quoteInUp(direction ConversionDirection, amountOut, rate *big.Int) *big.Int {
	if direction == DirectionUnwrap {
		return toDerivedValueUp(amountOut, rate)
	}
	return toBaseValueUp(amountOut, rate)
}

func inAssetFor(direction ConversionDirection, id BufferID) string {
	if direction == DirectionUnwrap {
		return id.Derived
	}
	return id.Base
}
