// Package ledger keeps token balances for the router, its adapters and the
// pools they trade against. Every fund-moving call runs inside a Tx so a
// failure anywhere leaves no trace.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance overflow")
	ErrTxClosed            = errors.New("transaction already closed")
)

// Reader exposes balances.
type Reader interface {
	BalanceOf(token, account common.Address) (*uint256.Int, error)
}

// State is a Reader that can move funds.
type State interface {
	Reader
	Transfer(token, from, to common.Address, amount *uint256.Int) error
}

// Ledger stores balances in a key-value database. Reads on the Ledger see
// committed state only.
type Ledger struct {
	mu sync.RWMutex
	db database.Database
}

// New creates a Ledger over db.
func New(db database.Database) *Ledger {
	return &Ledger{db: db}
}

// NewMemory creates a Ledger backed by an in-memory database.
func NewMemory() *Ledger {
	return New(memdb.New())
}

// BalanceOf returns the committed balance of account in token.
func (l *Ledger) BalanceOf(token, account common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return readBalance(l.db, token, account)
}

// Begin opens a transaction. Writes stay in the transaction until Commit.
func (l *Ledger) Begin() *Tx {
	return &Tx{ledger: l, db: versiondb.New(l.db)}
}

// Mint credits amount to account in a transaction of its own. It is used to
// seed balances.
func (l *Ledger) Mint(token, to common.Address, amount *uint256.Int) error {
	tx := l.Begin()
	if err := tx.Mint(token, to, amount); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// Tx is a pending set of balance changes.
type Tx struct {
	ledger *Ledger
	db     *versiondb.Database
	closed bool
}

var _ State = (*Tx)(nil)

func (tx *Tx) BalanceOf(token, account common.Address) (*uint256.Int, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	return readBalance(tx.db, token, account)
}

// Transfer moves amount of token between two accounts.
func (tx *Tx) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if tx.closed {
		return ErrTxClosed
	}
	if amount.IsZero() || from == to {
		return nil
	}

	fromBal, err := readBalance(tx.db, token, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal.Dec(), token.Hex(), amount.Dec())
	}
	toBal, err := readBalance(tx.db, token, to)
	if err != nil {
		return err
	}
	if _, overflow := toBal.AddOverflow(toBal, amount); overflow {
		return ErrOverflow
	}

	if err := writeBalance(tx.db, token, from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return writeBalance(tx.db, token, to, toBal)
}

// Mint credits amount out of thin air.
func (tx *Tx) Mint(token, to common.Address, amount *uint256.Int) error {
	if tx.closed {
		return ErrTxClosed
	}
	bal, err := readBalance(tx.db, token, to)
	if err != nil {
		return err
	}
	if _, overflow := bal.AddOverflow(bal, amount); overflow {
		return ErrOverflow
	}
	return writeBalance(tx.db, token, to, bal)
}

// Commit applies the transaction to the ledger.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true

	tx.ledger.mu.Lock()
	defer tx.ledger.mu.Unlock()
	return tx.db.Commit()
}

// Abort discards the transaction. It is safe to call after Commit.
func (tx *Tx) Abort() {
	if tx.closed {
		return
	}
	tx.closed = true
	tx.db.Abort()
}

type getter interface {
	Get(key []byte) ([]byte, error)
}

type putter interface {
	Put(key, value []byte) error
}

// balanceKey is token || account.
func balanceKey(token, account common.Address) []byte {
	key := make([]byte, 0, 2*common.AddressLength)
	key = append(key, token.Bytes()...)
	return append(key, account.Bytes()...)
}

func readBalance(db getter, token, account common.Address) (*uint256.Int, error) {
	raw, err := db.Get(balanceKey(token, account))
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func writeBalance(db putter, token, account common.Address, amount *uint256.Int) error {
	word := amount.Bytes32()
	return db.Put(balanceKey(token, account), word[:])
}
