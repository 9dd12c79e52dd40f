package pass

import (
	"math/big"
	"time"

	"tierpass/core/events"
	"tierpass/core/types"
)

// ModuleName identifies the pass module for the pause guard.
const ModuleName = "pass"

// EngineState describes the persistence capabilities the engine needs from the
// surrounding state implementation. All mutating engine operations run inside
// InTransaction; the implementation must discard every write performed by the
// callback when it returns an error.
type EngineState interface {
	PassTokenGet(id uint64) (*Token, bool, error)
	PassTokenPut(token *Token) error
	PassTokenDelete(id uint64) error
	PassNextTokenID() (uint64, error)
	PassParticipantGet(addr [20]byte) (*Participant, error)
	PassParticipantPut(participant *Participant) error
	PassSupplyGet() (*Supply, error)
	PassSupplyPut(supply *Supply) error
	PassConfigGet() (*Config, error)
	PassConfigPut(config *Config) error
	PassCampaignRootGet(campaignID string) ([32]byte, bool, error)
	PassCampaignRootSet(campaignID string, root [32]byte) error
	PassCurrencyGet(symbol string) (*Currency, bool, error)
	PassCurrencyPut(currency *Currency) error
	PassCurrencyDelete(symbol string) error
	PassMinUpgradePaymentGet(toLevel uint8, symbol string) (*big.Int, bool, error)
	PassMinUpgradePaymentSet(toLevel uint8, symbol string, amount *big.Int) error
	IsPaused(module string) bool
	SetPaused(module string, paused bool) error
	InTransaction(fn func() error) error
}

// OwnershipLedger is the external token-ownership collaborator. OwnerOf returns
// ok=false for non-existent tokens instead of failing, so expected absence is
// not driven through error handling.
type OwnershipLedger interface {
	OwnerOf(tokenID uint64) ([20]byte, bool)
	Create(owner [20]byte, tokenID uint64) error
	Destroy(tokenID uint64) error
}

// PaymentRail is the external settlement collaborator.
type PaymentRail interface {
	TransferNative(from, to [20]byte, amount *big.Int) error
	TransferToken(currency string, from, to [20]byte, amount *big.Int) error
}

// AccessControl gates the administrative setters.
type AccessControl interface {
	IsOwnerOrAdmin(caller [20]byte) bool
}

// Engine orchestrates eligibility verification, payment, token lifecycle,
// supply accounting and main-profile binding. Operations are serialized by the
// state layer's transaction; the engine relies on that for atomicity and keeps
// no mutable state of its own beyond wiring.
type Engine struct {
	state     EngineState
	ownership OwnershipLedger
	payments  PaymentRail
	access    AccessControl
	emitter   events.Emitter
	nowFn     func() int64

	// pending buffers events produced during the current operation; they are
	// flushed to the emitter only after the transaction commits.
	pending []*types.Event
}

// NewEngine constructs a pass engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state EngineState) { e.state = state }

// SetOwnership configures the token-ownership collaborator.
func (e *Engine) SetOwnership(ledger OwnershipLedger) { e.ownership = ledger }

// SetPayments configures the settlement collaborator.
func (e *Engine) SetPayments(rail PaymentRail) { e.payments = rail }

// SetAccessControl configures the admin gate.
func (e *Engine) SetAccessControl(access AccessControl) { e.access = access }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) queueEvent(evt *types.Event) {
	if e == nil || evt == nil {
		return
	}
	e.pending = append(e.pending, evt)
}

// execute runs fn inside a state transaction. Queued events are emitted only
// after a successful commit so a rolled-back operation leaves no observable
// trace, then the buffer is reset either way.
func (e *Engine) execute(fn func() error) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	e.pending = e.pending[:0]
	err := e.state.InTransaction(fn)
	if err != nil {
		e.pending = e.pending[:0]
		return err
	}
	for _, evt := range e.pending {
		if e.emitter != nil {
			e.emitter.Emit(WrapEvent(evt))
		}
	}
	e.pending = e.pending[:0]
	return nil
}

// guard rejects participant-facing operations while the module is paused.
func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if e.state.IsPaused(ModuleName) {
		return ErrSystemPaused
	}
	return nil
}

func (e *Engine) loadConfig() (*Config, error) {
	cfg, err := e.state.PassConfigGet()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg, nil
}

func (e *Engine) loadParticipant(addr [20]byte) (*Participant, error) {
	participant, err := e.state.PassParticipantGet(addr)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		participant = &Participant{Addr: addr}
	}
	return participant, nil
}

func (e *Engine) loadSupply() (*Supply, error) {
	supply, err := e.state.PassSupplyGet()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		supply = &Supply{}
	}
	return supply, nil
}

// Token returns the live token with the supplied id.
func (e *Engine) Token(id uint64) (*Token, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrInvalidState
	}
	var token *Token
	var ok bool
	err := e.state.InTransaction(func() error {
		var err error
		token, ok, err = e.state.PassTokenGet(id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return token, ok, nil
}

// OwnerOf resolves the current owner of a token, ok=false when it does not
// exist.
func (e *Engine) OwnerOf(id uint64) ([20]byte, bool) {
	if e == nil || e.state == nil || e.ownership == nil {
		return [20]byte{}, false
	}
	var owner [20]byte
	var ok bool
	if err := e.state.InTransaction(func() error {
		owner, ok = e.ownership.OwnerOf(id)
		return nil
	}); err != nil {
		return [20]byte{}, false
	}
	return owner, ok
}

// ProfileOf returns the participant's bound main-profile token id, 0 when
// unset.
func (e *Engine) ProfileOf(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrInvalidState
	}
	var profile uint64
	err := e.state.InTransaction(func() error {
		participant, err := e.loadParticipant(addr)
		if err != nil {
			return err
		}
		profile = participant.MainProfile
		return nil
	})
	return profile, err
}

// HasMinted reports whether the participant consumed their one-time mint.
func (e *Engine) HasMinted(addr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrInvalidState
	}
	var minted bool
	err := e.state.InTransaction(func() error {
		participant, err := e.loadParticipant(addr)
		if err != nil {
			return err
		}
		minted = participant.Minted
		return nil
	})
	return minted, err
}

// SupplySnapshot returns a copy of the live counters.
func (e *Engine) SupplySnapshot() (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, ErrInvalidState
	}
	var snapshot *Supply
	err := e.state.InTransaction(func() error {
		supply, err := e.loadSupply()
		if err != nil {
			return err
		}
		snapshot = supply.Copy()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
