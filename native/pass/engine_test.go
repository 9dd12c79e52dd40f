package pass_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tierpass/core/state"
	"tierpass/crypto"
	"tierpass/native/bank"
	"tierpass/native/pass"
	"tierpass/native/registry"
	"tierpass/storage"
)

// env wires the engine against a fresh in-memory state with a funded owner,
// a configured fee sink and a generated signing authority.
type env struct {
	t          *testing.T
	engine     *pass.Engine
	manager    *state.Manager
	owners     *registry.Ledger
	settlement *bank.Ledger
	owner      [20]byte
	feeSink    [20]byte
	authority  *crypto.PrivateKey
	now        int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	owners := registry.NewLedger(manager)
	settlement := bank.NewLedger(manager)
	authority, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate authority key: %v", err)
	}

	e := &env{
		t:          t,
		manager:    manager,
		owners:     owners,
		settlement: settlement,
		owner:      testAddr(0xaa),
		feeSink:    testAddr(0xfb),
		authority:  authority,
		now:        1_700_000_000,
	}
	engine := pass.NewEngine()
	engine.SetState(manager)
	engine.SetOwnership(owners)
	engine.SetPayments(settlement)
	engine.SetAccessControl(pass.NewAdminSet(e.owner))
	engine.SetNowFunc(func() int64 { return e.now })
	owners.RegisterHook(engine.HandleTransfer)
	e.engine = engine

	e.must(engine.SetFeeRecipient(e.owner, e.feeSink))
	e.must(engine.SetAuthority(e.owner, authority.PubKey().RawAddress()))
	e.must(engine.SetCurrency(e.owner, pass.NativeCurrency, big.NewInt(10)))
	return e
}

func (e *env) must(err error) {
	e.t.Helper()
	if err != nil {
		e.t.Fatalf("unexpected error: %v", err)
	}
}

func (e *env) fundNative(addr [20]byte, amount int64) {
	e.t.Helper()
	e.must(e.settlement.CreditNative(addr, big.NewInt(amount)))
}

func (e *env) nativeBalance(addr [20]byte) int64 {
	e.t.Helper()
	balance, err := e.settlement.NativeBalanceOf(addr)
	e.must(err)
	return balance.Int64()
}

// allowlist installs an allow-list root that admits exactly the given leaf and
// returns the matching single-node proof.
func (e *env) allowlist(leaf [32]byte) [][32]byte {
	e.t.Helper()
	sibling := [32]byte{0x01}
	e.must(e.engine.SetInitialMintRoot(e.owner, pairHash(leaf, sibling)))
	return [][32]byte{sibling}
}

// campaign registers a campaign root admitting exactly the given leaf.
func (e *env) campaign(id string, leaf [32]byte) [][32]byte {
	e.t.Helper()
	sibling := [32]byte{0x02}
	e.must(e.engine.SetCampaignRoot(e.owner, id, pairHash(leaf, sibling)))
	return [][32]byte{sibling}
}

// mintAt fast-paths a participant to a single token at the given level via the
// allow-list track with a free claim.
func (e *env) mintAt(participant [20]byte, level uint8) *pass.Token {
	e.t.Helper()
	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{level}, 0))
	tokens, err := e.engine.MintInitial(participant, []uint8{level}, 0, pass.NativeCurrency, proof, nil)
	e.must(err)
	if len(tokens) != 1 {
		e.t.Fatalf("expected one token, got %d", len(tokens))
	}
	return tokens[0]
}

func (e *env) signMint(v pass.MintVoucher) []byte {
	e.t.Helper()
	sig, err := pass.SignDigest(v.Hash(), e.authority)
	e.must(err)
	return sig
}

func (e *env) signUpgrade(v pass.UpgradeVoucher) []byte {
	e.t.Helper()
	sig, err := pass.SignDigest(v.Hash(), e.authority)
	e.must(err)
	return sig
}

func newTestKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func testAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func pairHash(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

func TestPauseBlocksParticipantOperations(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x11)
	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))

	e.must(e.engine.Pause(e.owner))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); !errors.Is(err, pass.ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}

	e.must(e.engine.Resume(e.owner))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); err != nil {
		t.Fatalf("mint after resume: %v", err)
	}
}

func TestAdminSettersRejectNonAdmin(t *testing.T) {
	e := newEnv(t)
	stranger := testAddr(0x99)

	if err := e.engine.SetStartTime(stranger, 42); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("SetStartTime: expected ErrUnauthorized, got %v", err)
	}
	if err := e.engine.SetPublicMintLimit(stranger, 10); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("SetPublicMintLimit: expected ErrUnauthorized, got %v", err)
	}
	if err := e.engine.Pause(stranger); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("Pause: expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminSetAddsSecondaryAdmin(t *testing.T) {
	e := newEnv(t)
	helper := testAddr(0x42)
	e.engine.SetAccessControl(pass.NewAdminSet(e.owner, helper))

	if err := e.engine.SetStartTime(helper, 99); err != nil {
		t.Fatalf("secondary admin rejected: %v", err)
	}
}

func TestLevelCapsRejectAbove100(t *testing.T) {
	e := newEnv(t)
	if err := e.engine.SetLevelCaps(e.owner, 101, 0); !errors.Is(err, pass.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestSupplyCounterInvariantAcrossLifecycle(t *testing.T) {
	e := newEnv(t)
	a, b := testAddr(0x21), testAddr(0x22)

	tokenA := e.mintAt(a, 2)
	e.mintAt(b, 3)
	e.must(e.engine.BindProfile(a, tokenA.ID))

	proof := e.campaign("wave-1", pass.UpgradeLeaf(a, tokenA.ID, 3))
	if _, err := e.engine.Upgrade(a, "wave-1", 3, proof); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	supply, err := e.engine.SupplySnapshot()
	e.must(err)
	if err := supply.CheckInvariant(); err != nil {
		t.Fatalf("supply invariant: %v", err)
	}
	if supply.Total != 2 {
		t.Fatalf("total supply = %d, want 2", supply.Total)
	}
	if supply.PerLevel[1] != 0 || supply.PerLevel[2] != 2 {
		t.Fatalf("per-level counters = %v", supply.PerLevel)
	}
}
