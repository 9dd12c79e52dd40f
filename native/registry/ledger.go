package registry

import (
	"errors"
	"fmt"
)

// storage abstracts the subset of state manager functionality required by the
// ownership ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	InTransaction(fn func() error) error
}

var (
	// ErrTokenExists marks an attempt to register an id twice.
	ErrTokenExists = errors.New("registry: token already exists")
	// ErrTokenNotFound marks operations on an unregistered id.
	ErrTokenNotFound = errors.New("registry: token not found")
	// ErrNotOwner marks a transfer initiated by a non-owner.
	ErrNotOwner = errors.New("registry: caller is not the owner")
)

const ownerPrefix = "registry/owner/"

func ownerKey(tokenID uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", ownerPrefix, tokenID))
}

// TransferHook observes every ownership change, including mints (from zero)
// and burns (to zero). Hooks run inside the transaction that caused the change
// and abort it by returning an error.
type TransferHook func(from, to [20]byte, tokenID uint64) error

// Ledger is the token-ownership collaborator. It records one owner per live
// token id and notifies registered hooks on every change so dependent modules
// can keep their own state consistent.
type Ledger struct {
	store storage
	hooks []TransferHook
}

// NewLedger constructs an ownership ledger bound to the provided storage
// backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

// RegisterHook appends a transfer observer. Hooks fire in registration order.
func (l *Ledger) RegisterHook(hook TransferHook) {
	if l == nil || hook == nil {
		return
	}
	l.hooks = append(l.hooks, hook)
}

func (l *Ledger) notify(from, to [20]byte, tokenID uint64) error {
	for _, hook := range l.hooks {
		if err := hook(from, to, tokenID); err != nil {
			return err
		}
	}
	return nil
}

// OwnerOf resolves the owner of a token. Absence is an expected condition and
// reported through ok=false rather than an error.
func (l *Ledger) OwnerOf(tokenID uint64) ([20]byte, bool) {
	if l == nil || l.store == nil {
		return [20]byte{}, false
	}
	var owner [20]byte
	ok, err := l.store.KVGet(ownerKey(tokenID), &owner)
	if err != nil || !ok {
		return [20]byte{}, false
	}
	return owner, true
}

// Create registers a freshly minted token for owner. Must run inside the
// caller's transaction.
func (l *Ledger) Create(owner [20]byte, tokenID uint64) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("registry: ledger not initialised")
	}
	if tokenID == 0 {
		return fmt.Errorf("registry: token id required")
	}
	var zero [20]byte
	if owner == zero {
		return fmt.Errorf("registry: owner required")
	}
	if _, exists := l.OwnerOf(tokenID); exists {
		return fmt.Errorf("%w: id %d", ErrTokenExists, tokenID)
	}
	if err := l.store.KVPut(ownerKey(tokenID), &owner); err != nil {
		return err
	}
	return l.notify(zero, owner, tokenID)
}

// Destroy removes a burned token. Must run inside the caller's transaction.
func (l *Ledger) Destroy(tokenID uint64) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("registry: ledger not initialised")
	}
	owner, ok := l.OwnerOf(tokenID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTokenNotFound, tokenID)
	}
	if err := l.store.KVDelete(ownerKey(tokenID)); err != nil {
		return err
	}
	var zero [20]byte
	return l.notify(owner, zero, tokenID)
}

// Transfer moves a token between accounts. It opens its own transaction and is
// the entry point for externally initiated transfers; hook-driven invalidation
// (e.g. main-profile clearing) commits atomically with the ownership change.
func (l *Ledger) Transfer(from, to [20]byte, tokenID uint64) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("registry: ledger not initialised")
	}
	var zero [20]byte
	if to == zero {
		return fmt.Errorf("registry: transfer to zero address, use Destroy")
	}
	return l.store.InTransaction(func() error {
		owner, ok := l.OwnerOf(tokenID)
		if !ok {
			return fmt.Errorf("%w: id %d", ErrTokenNotFound, tokenID)
		}
		if owner != from {
			return fmt.Errorf("%w: id %d", ErrNotOwner, tokenID)
		}
		if err := l.store.KVPut(ownerKey(tokenID), &to); err != nil {
			return err
		}
		return l.notify(from, to, tokenID)
	})
}
