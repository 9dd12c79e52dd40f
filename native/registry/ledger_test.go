package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tierpass/core/state"
	storagepkg "tierpass/storage"
)

func testLedger(t *testing.T) (*Ledger, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storagepkg.NewMemDB())
	return NewLedger(manager), manager
}

func TestCreateAndResolveOwner(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))

	got, ok := ledger.OwnerOf(1)
	require.True(t, ok)
	require.Equal(t, owner, got)

	_, ok = ledger.OwnerOf(2)
	require.False(t, ok)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))
	err := manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	})
	require.ErrorIs(t, err, ErrTokenExists)
}

func TestDestroyRemovesOwnership(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))
	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Destroy(1)
	}))

	_, ok := ledger.OwnerOf(1)
	require.False(t, ok)

	err := manager.InTransaction(func() error {
		return ledger.Destroy(1)
	})
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTransferValidatesSender(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}
	other := [20]byte{0x02}

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))

	require.ErrorIs(t, ledger.Transfer(other, owner, 1), ErrNotOwner)
	require.ErrorIs(t, ledger.Transfer(owner, other, 404), ErrTokenNotFound)
	require.Error(t, ledger.Transfer(owner, [20]byte{}, 1))

	require.NoError(t, ledger.Transfer(owner, other, 1))
	got, ok := ledger.OwnerOf(1)
	require.True(t, ok)
	require.Equal(t, other, got)
}

func TestHooksObserveEveryOwnershipChange(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}
	other := [20]byte{0x02}

	type change struct {
		from, to [20]byte
		tokenID  uint64
	}
	var seen []change
	ledger.RegisterHook(func(from, to [20]byte, tokenID uint64) error {
		seen = append(seen, change{from, to, tokenID})
		return nil
	})

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))
	require.NoError(t, ledger.Transfer(owner, other, 1))
	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Destroy(1)
	}))

	require.Len(t, seen, 3)
	require.Equal(t, change{[20]byte{}, owner, 1}, seen[0])
	require.Equal(t, change{owner, other, 1}, seen[1])
	require.Equal(t, change{other, [20]byte{}, 1}, seen[2])
}

func TestHookErrorAbortsTransfer(t *testing.T) {
	ledger, manager := testLedger(t)
	owner := [20]byte{0x01}
	other := [20]byte{0x02}

	require.NoError(t, manager.InTransaction(func() error {
		return ledger.Create(owner, 1)
	}))

	ledger.RegisterHook(func(from, to [20]byte, tokenID uint64) error {
		return ErrNotOwner
	})
	require.Error(t, ledger.Transfer(owner, other, 1))

	// The rejected transfer must not have moved the token.
	got, ok := ledger.OwnerOf(1)
	require.True(t, ok)
	require.Equal(t, owner, got)
}
