package state

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"tierpass/storage"
)

// Manager persists module state as RLP-encoded records in the backing database
// and provides the transactional semantics the engine relies on: every mutating
// operation runs inside InTransaction, writes land in an overlay and reach the
// database only when the callback succeeds. An error discards the overlay
// wholesale, so a failed operation leaves no observable state change.
//
// The typed accessors must only be called from within InTransaction; the
// transaction mutex is the sole concurrency control, mirroring the single
// serialized writer the engine's invariants assume.
type Manager struct {
	mu      sync.Mutex
	db      storage.Database
	overlay map[string]overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// NewManager constructs a state manager over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// InTransaction serializes and runs fn against a buffered view of the
// database. The buffered writes are flushed only when fn returns nil.
func (m *Manager) InTransaction(fn func() error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlay = make(map[string]overlayEntry)
	defer func() { m.overlay = nil }()
	if err := fn(); err != nil {
		return err
	}
	for key, entry := range m.overlay {
		if entry.deleted {
			if err := m.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
			continue
		}
		if err := m.db.Put([]byte(key), entry.value); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	return nil
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	if m.overlay == nil {
		return fmt.Errorf("kv: write outside transaction")
	}
	m.overlay[string(key)] = overlayEntry{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	var data []byte
	if m.overlay != nil {
		if entry, ok := m.overlay[string(key)]; ok {
			if entry.deleted {
				return false, nil
			}
			data = entry.value
		}
	}
	if data == nil {
		stored, err := m.db.Get(key)
		if err == storage.ErrKeyNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		data = stored
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether the key exists without decoding its value.
func (m *Manager) KVHas(key []byte) (bool, error) {
	return m.KVGet(key, nil)
}

// KVDelete removes the key. Deleting an absent key is not an error.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if m.overlay == nil {
		return fmt.Errorf("kv: delete outside transaction")
	}
	m.overlay[string(key)] = overlayEntry{deleted: true}
	return nil
}
