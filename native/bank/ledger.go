package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// storage abstracts the subset of state manager functionality required by the
// settlement ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	InTransaction(fn func() error) error
}

var (
	// ErrInsufficientFunds marks a debit larger than the account balance.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrInvalidAmount marks nil or negative transfer amounts.
	ErrInvalidAmount = errors.New("bank: amount must be non-negative")
)

const (
	nativePrefix = "bank/native/"
	tokenPrefix  = "bank/token/"
)

func nativeKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", nativePrefix, addr))
}

func tokenKey(currency string, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%s/%x", tokenPrefix, strings.ToUpper(currency), addr))
}

// Ledger is the in-process settlement rail: native balances plus per-currency
// token balances. The pass engine drives it through the PaymentRail interface;
// the daemon and tests fund accounts through the credit helpers.
type Ledger struct {
	store storage
}

// NewLedger constructs a settlement ledger bound to the provided storage
// backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) balance(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := l.store.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (l *Ledger) move(fromKey, toKey []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.balance(fromKey)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, fromBalance, amount)
	}
	toBalance, err := l.balance(toKey)
	if err != nil {
		return err
	}
	if err := l.store.KVPut(fromKey, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.store.KVPut(toKey, new(big.Int).Add(toBalance, amount))
}

// TransferNative moves native funds between accounts. Must run inside the
// caller's transaction.
func (l *Ledger) TransferNative(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("bank: ledger not initialised")
	}
	return l.move(nativeKey(from), nativeKey(to), amount)
}

// TransferToken moves token funds between accounts. Must run inside the
// caller's transaction.
func (l *Ledger) TransferToken(currency string, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("bank: ledger not initialised")
	}
	if strings.TrimSpace(currency) == "" {
		return fmt.Errorf("bank: currency required")
	}
	return l.move(tokenKey(currency, from), tokenKey(currency, to), amount)
}

// CreditNative adds native funds to an account inside its own transaction.
func (l *Ledger) CreditNative(addr [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("bank: ledger not initialised")
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.store.InTransaction(func() error {
		balance, err := l.balance(nativeKey(addr))
		if err != nil {
			return err
		}
		return l.store.KVPut(nativeKey(addr), new(big.Int).Add(balance, amount))
	})
}

// CreditToken adds token funds to an account inside its own transaction.
func (l *Ledger) CreditToken(currency string, addr [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("bank: ledger not initialised")
	}
	if strings.TrimSpace(currency) == "" {
		return fmt.Errorf("bank: currency required")
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.store.InTransaction(func() error {
		balance, err := l.balance(tokenKey(currency, addr))
		if err != nil {
			return err
		}
		return l.store.KVPut(tokenKey(currency, addr), new(big.Int).Add(balance, amount))
	})
}

// NativeBalanceOf reports the committed native balance of an account.
func (l *Ledger) NativeBalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("bank: ledger not initialised")
	}
	var balance *big.Int
	err := l.store.InTransaction(func() error {
		var err error
		balance, err = l.balance(nativeKey(addr))
		return err
	})
	return balance, err
}

// TokenBalanceOf reports the committed token balance of an account.
func (l *Ledger) TokenBalanceOf(currency string, addr [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("bank: ledger not initialised")
	}
	var balance *big.Int
	err := l.store.InTransaction(func() error {
		var err error
		balance, err = l.balance(tokenKey(currency, addr))
		return err
	})
	return balance, err
}
