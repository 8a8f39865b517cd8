package buffer

import (
	"log/slog"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"vaultcore/core/events"
	"vaultcore/crypto"
	nativecommon "vaultcore/native/common"
	"vaultcore/observability"
)

var ray = big.NewInt(1_000_000_000_000_000_000)

type engineState interface {
	GetBuffer(id BufferID) (*Buffer, error)
	PutBuffer(id BufferID, buf *Buffer) error
	GetShares(id BufferID, owner crypto.Address) (*big.Int, error)
	PutShares(id BufferID, owner crypto.Address, shares *big.Int) error
	GetTokenBalance(asset string, addr crypto.Address) (*big.Int, error)
	PutTokenBalance(asset string, addr crypto.Address, amount *big.Int) error
	GetAllowance(asset string, owner, spender crypto.Address) (*big.Int, error)
	PutAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error
}

// Engine orchestrates the buffer ledger, the packed balance codec and the
// settlement-verifying conversion path. All public entry points are guarded by
// an explicit reentrancy lock; the only external code invoked while the lock
// is held is the conversion adapter.
type Engine struct {
	state        engineState
	vaultAddress crypto.Address
	params       Params
	pauses       nativecommon.PauseView
	oracle       RateOracle
	emitter      events.Emitter
	lock         nativecommon.CallLock
	log          *slog.Logger
	nowFn        func() int64
}

// NewEngine constructs a buffer engine holding liquidity under the supplied
// vault module address.
func NewEngine(vaultAddr crypto.Address, params Params) *Engine {
	return &Engine{
		vaultAddress: vaultAddr,
		params:       params,
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetPauses wires the pause switches consulted by deposits and conversions.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetOracle configures the exchange-rate source. The oracle is queried fresh
// inside every operation that needs a rate; results are never reused across
// operations.
func (e *Engine) SetOracle(oracle RateOracle) {
	if e == nil {
		return
	}
	e.oracle = oracle
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger attaches a structured logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if e == nil {
		return
	}
	e.log = log
}

// SetNow overrides the time source for deterministic testing.
func (e *Engine) SetNow(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// VaultAddress returns the module account holding all buffer liquidity.
func (e *Engine) VaultAddress() crypto.Address {
	return e.vaultAddress
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) logger() *slog.Logger {
	if e == nil || e.log == nil {
		return slog.Default()
	}
	return e.log
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) currentRate(id BufferID) (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNilOracle
	}
	rate, err := e.oracle.CurrentRate(id.Derived)
	if err != nil {
		return nil, err
	}
	if rate == nil || rate.Sign() <= 0 {
		return nil, errInvalidRate
	}
	return rate, nil
}

func (e *Engine) loadBuffer(id BufferID) (*Buffer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	buf, err := e.state.GetBuffer(id)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	if buf.Balances == nil {
		buf.Balances = new(uint256.Int)
	}
	if buf.TotalShares == nil {
		buf.TotalShares = big.NewInt(0)
	}
	if buf.MinimumSupply == nil {
		buf.MinimumSupply = big.NewInt(0)
	}
	return buf, nil
}

// CurrentInvariantValue recomputes the buffer's invariant value, base balance
// plus derived balance in base terms at the freshly queried rate. It is
// evaluated at the start of every liquidity-changing operation and must never
// be cached across operations.
func (e *Engine) CurrentInvariantValue(id BufferID) (*big.Int, error) {
	buf, err := e.loadBuffer(id)
	if err != nil {
		return nil, err
	}
	if buf == nil || !buf.Initialized {
		return nil, ErrBufferNotInitialized
	}
	rate, err := e.currentRate(id)
	if err != nil {
		return nil, err
	}
	base, derived := UnpackBalances(buf.Balances)
	return invariantValue(base, derived, rate), nil
}

// TotalShares returns the buffer's share supply, including the unredeemable
// minimum-supply floor.
func (e *Engine) TotalShares(id BufferID) (*big.Int, error) {
	buf, err := e.loadBuffer(id)
	if err != nil {
		return nil, err
	}
	if buf == nil || !buf.Initialized {
		return nil, ErrBufferNotInitialized
	}
	return new(big.Int).Set(buf.TotalShares), nil
}

// SharesOf returns the share balance of one owner in the buffer.
func (e *Engine) SharesOf(id BufferID, owner crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	shares, err := e.state.GetShares(id, owner)
	if err != nil {
		return nil, err
	}
	if shares == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(shares), nil
}

// packOrReject packs the two balances and, on overflow, emits the rejection
// event before propagating the error.
func (e *Engine) packOrReject(id BufferID, base, derived *big.Int) (*uint256.Int, error) {
	word, err := PackBalances(base, derived)
	if err == nil {
		return word, nil
	}
	field, value := "base", base
	if derived != nil && (derived.Sign() < 0 || derived.BitLen() > balanceFieldBits) {
		field, value = "derived", derived
	}
	e.emit(events.BufferOverflowRejected{
		BaseAsset:    id.Base,
		DerivedAsset: id.Derived,
		Field:        field,
		Value:        value,
	})
	observability.Buffer().RecordOverflowRejected()
	return nil, err
}

// --- rate-aware math ---

// toBaseValue converts a derived amount into base terms at the 1e18-scaled
// rate, rounding down.
func toBaseValue(derived, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(derived, rate)
	return out.Quo(out, ray)
}

// toBaseValueUp is the ceiling counterpart, used when charging the input side
// so rounding always favors the buffer.
func toBaseValueUp(derived, rate *big.Int) *big.Int {
	return ceilDiv(new(big.Int).Mul(derived, rate), ray)
}

// toDerivedValue converts a base amount into derived terms, rounding down.
func toDerivedValue(base, rate *big.Int) *big.Int {
	return new(big.Int).Quo(new(big.Int).Mul(base, ray), rate)
}

// toDerivedValueUp is the ceiling counterpart.
func toDerivedValueUp(base, rate *big.Int) *big.Int {
	return ceilDiv(new(big.Int).Mul(base, ray), rate)
}

func invariantValue(base, derived, rate *big.Int) *big.Int {
	return new(big.Int).Add(base, toBaseValue(derived, rate))
}

func ceilDiv(num, den *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// --- mutation journal ---

type journalKind uint8

const (
	journalBalance journalKind = iota
	journalAllowance
	journalShares
	journalBuffer
)

type journalEntry struct {
	kind       journalKind
	asset      string
	id         BufferID
	owner      crypto.Address
	spender    crypto.Address
	prevAmount *big.Int
	newAmount  *big.Int
	prevBuffer *Buffer
}

// stateJournal records the previous value of every write performed during one
// operation so a failure can restore state as if the operation never ran.
// Buffer records are always written as the final step of an operation, so a
// journaled buffer entry always carries a pre-existing record.
type stateJournal struct {
	state   engineState
	entries []journalEntry
}

func newJournal(state engineState) *stateJournal {
	return &stateJournal{state: state}
}

func (j *stateJournal) setTokenBalance(asset string, addr crypto.Address, amount *big.Int) error {
	prev, err := j.state.GetTokenBalance(asset, addr)
	if err != nil {
		return err
	}
	if err := j.state.PutTokenBalance(asset, addr, amount); err != nil {
		return err
	}
	j.entries = append(j.entries, journalEntry{
		kind:       journalBalance,
		asset:      asset,
		owner:      addr,
		prevAmount: cloneBigInt(prev),
		newAmount:  cloneBigInt(amount),
	})
	return nil
}

func (j *stateJournal) setAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error {
	prev, err := j.state.GetAllowance(asset, owner, spender)
	if err != nil {
		return err
	}
	if err := j.state.PutAllowance(asset, owner, spender, amount); err != nil {
		return err
	}
	j.entries = append(j.entries, journalEntry{
		kind:       journalAllowance,
		asset:      asset,
		owner:      owner,
		spender:    spender,
		prevAmount: cloneBigInt(prev),
	})
	return nil
}

func (j *stateJournal) setShares(id BufferID, owner crypto.Address, shares *big.Int) error {
	prev, err := j.state.GetShares(id, owner)
	if err != nil {
		return err
	}
	if err := j.state.PutShares(id, owner, shares); err != nil {
		return err
	}
	j.entries = append(j.entries, journalEntry{
		kind:       journalShares,
		id:         id,
		owner:      owner,
		prevAmount: cloneBigInt(prev),
	})
	return nil
}

func (j *stateJournal) setBuffer(id BufferID, buf *Buffer) error {
	prev, err := j.state.GetBuffer(id)
	if err != nil {
		return err
	}
	if err := j.state.PutBuffer(id, buf); err != nil {
		return err
	}
	j.entries = append(j.entries, journalEntry{
		kind:       journalBuffer,
		id:         id,
		prevBuffer: prev.Copy(),
	})
	return nil
}

// transferToken moves amount between two token-ledger accounts, recording both
// writes. A zero amount is a no-op.
func (j *stateJournal) transferToken(asset string, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errInvalidAmount
	}
	fromBal, err := j.state.GetTokenBalance(asset, from)
	if err != nil {
		return err
	}
	fromBal = cloneBigInt(fromBal)
	if fromBal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	toBal, err := j.state.GetTokenBalance(asset, to)
	if err != nil {
		return err
	}
	toBal = cloneBigInt(toBal)
	if err := j.setTokenBalance(asset, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return j.setTokenBalance(asset, to, new(big.Int).Add(toBal, amount))
}

// revert restores the journaled writes in reverse order. Restore failures are
// logged and skipped; the remaining entries are still attempted.
func (j *stateJournal) revert(log *slog.Logger) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		entry := j.entries[i]
		var err error
		switch entry.kind {
		case journalBalance:
			// Balance writes are undone by delta rather than by restoring the
			// recorded value: the conversion adapter moves vault funds between
			// the journaled write and the revert, and those external moves must
			// survive the rollback to keep the token ledger conserved.
			var current *big.Int
			current, err = j.state.GetTokenBalance(entry.asset, entry.owner)
			if err == nil {
				restored := new(big.Int).Add(current, entry.prevAmount)
				restored.Sub(restored, entry.newAmount)
				if restored.Sign() < 0 {
					restored.SetInt64(0)
				}
				err = j.state.PutTokenBalance(entry.asset, entry.owner, restored)
			}
		case journalAllowance:
			err = j.state.PutAllowance(entry.asset, entry.owner, entry.spender, entry.prevAmount)
		case journalShares:
			err = j.state.PutShares(entry.id, entry.owner, entry.prevAmount)
		case journalBuffer:
			if entry.prevBuffer != nil {
				err = j.state.PutBuffer(entry.id, entry.prevBuffer)
			}
		}
		if err != nil && log != nil {
			log.Error("buffer journal revert failed", "err", err)
		}
	}
	j.entries = j.entries[:0]
}
