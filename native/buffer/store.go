package buffer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"vaultcore/crypto"
	"vaultcore/storage"
)

type storedBuffer struct {
	Base          string
	Derived       string
	Balances      []byte
	TotalShares   string
	MinimumSupply string
	Initialized   bool
}

// Store persists buffer records, share balances, token balances and adapter
// allowances as RLP-encoded values in a key-value database. It implements the
// engine's state interface.
type Store struct {
	db storage.Database
}

// NewStore constructs a Store backed by the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("buffer store: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("buffer store: encode %s: %w", key, err)
	}
	return s.db.Put(key, raw)
}

// GetBuffer loads the buffer record for the pair, or nil when the pair has
// never been initialized.
func (s *Store) GetBuffer(id BufferID) (*Buffer, error) {
	var rec storedBuffer
	ok, err := s.get(bufferRecordKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	totalShares, err := parseStoredAmount(rec.TotalShares)
	if err != nil {
		return nil, fmt.Errorf("buffer store: total shares: %w", err)
	}
	minimum, err := parseStoredAmount(rec.MinimumSupply)
	if err != nil {
		return nil, fmt.Errorf("buffer store: minimum supply: %w", err)
	}
	return &Buffer{
		ID:            NewBufferID(rec.Base, rec.Derived),
		Balances:      new(uint256.Int).SetBytes(rec.Balances),
		TotalShares:   totalShares,
		MinimumSupply: minimum,
		Initialized:   rec.Initialized,
	}, nil
}

// PutBuffer persists the buffer record.
func (s *Store) PutBuffer(id BufferID, buf *Buffer) error {
	if buf == nil {
		return fmt.Errorf("buffer store: nil buffer record for %s", id)
	}
	word := buf.Balances
	if word == nil {
		word = new(uint256.Int)
	}
	rec := storedBuffer{
		Base:          id.Base,
		Derived:       id.Derived,
		Balances:      word.Bytes(),
		TotalShares:   formatStoredAmount(buf.TotalShares),
		MinimumSupply: formatStoredAmount(buf.MinimumSupply),
		Initialized:   buf.Initialized,
	}
	return s.put(bufferRecordKey(id), rec)
}

// GetShares returns the owner's share balance in the buffer, zero when unset.
func (s *Store) GetShares(id BufferID, owner crypto.Address) (*big.Int, error) {
	return s.getAmount(bufferSharesKey(id, owner))
}

// PutShares records the owner's share balance.
func (s *Store) PutShares(id BufferID, owner crypto.Address, shares *big.Int) error {
	return s.put(bufferSharesKey(id, owner), formatStoredAmount(shares))
}

// GetTokenBalance returns the token-ledger balance for one asset and holder.
func (s *Store) GetTokenBalance(asset string, addr crypto.Address) (*big.Int, error) {
	return s.getAmount(tokenBalanceKey(asset, addr))
}

// PutTokenBalance records the token-ledger balance.
func (s *Store) PutTokenBalance(asset string, addr crypto.Address, amount *big.Int) error {
	return s.put(tokenBalanceKey(asset, addr), formatStoredAmount(amount))
}

// GetAllowance returns the standing approval from owner to spender.
func (s *Store) GetAllowance(asset string, owner, spender crypto.Address) (*big.Int, error) {
	return s.getAmount(tokenAllowanceKey(asset, owner, spender))
}

// PutAllowance records the standing approval from owner to spender.
func (s *Store) PutAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error {
	return s.put(tokenAllowanceKey(asset, owner, spender), formatStoredAmount(amount))
}

func (s *Store) getAmount(key []byte) (*big.Int, error) {
	var encoded string
	ok, err := s.get(key, &encoded)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return parseStoredAmount(encoded)
}

func parseStoredAmount(encoded string) (*big.Int, error) {
	if encoded == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("buffer store: malformed amount %q", encoded)
	}
	return value, nil
}

func formatStoredAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
