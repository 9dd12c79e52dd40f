package state

import (
	"fmt"
	"math/big"

	"tierpass/native/pass"
)

var (
	passTokenPrefix       = "pass/token/"
	passParticipantPrefix = "pass/participant/"
	passCampaignPrefix    = "pass/campaign/"
	passCurrencyPrefix    = "pass/currency/"
	passMinPayPrefix      = "pass/minpay/"
	passSupplyKey         = []byte("pass/supply")
	passConfigKey         = []byte("pass/config")
	passNextIDKey         = []byte("pass/nextid")
	pausePrefix           = "system/pause/"
)

func passTokenKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", passTokenPrefix, id))
}

func passParticipantKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", passParticipantPrefix, addr))
}

func passCampaignKey(campaignID string) []byte {
	return []byte(passCampaignPrefix + campaignID)
}

func passCurrencyKey(symbol string) []byte {
	return []byte(passCurrencyPrefix + symbol)
}

func passMinPayKey(toLevel uint8, symbol string) []byte {
	return []byte(fmt.Sprintf("%s%d/%s", passMinPayPrefix, toLevel, symbol))
}

func pauseKey(module string) []byte {
	return []byte(pausePrefix + module)
}

type storedToken struct {
	Level   uint64
	Lineage uint64
}

type storedParticipant struct {
	Minted      bool
	MainProfile uint64
}

type storedSupply struct {
	PerLevel []uint64
	Total    uint64
}

type storedConfig struct {
	InitialMintRoot     [32]byte
	StartTime           uint64
	PublicMintRemaining uint64
	Authority           [20]byte
	Level5CapPct        uint64
	Level6CapPct        uint64
	FeeRecipient        [20]byte
}

type storedCurrency struct {
	Symbol    string
	UnitPrice *big.Int
}

// PassTokenGet loads a live token record.
func (m *Manager) PassTokenGet(id uint64) (*pass.Token, bool, error) {
	var stored storedToken
	ok, err := m.KVGet(passTokenKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &pass.Token{ID: id, Level: uint8(stored.Level), Lineage: stored.Lineage}, true, nil
}

// PassTokenPut persists a token record.
func (m *Manager) PassTokenPut(token *pass.Token) error {
	if token == nil || token.ID == 0 {
		return fmt.Errorf("state: token record requires an id")
	}
	return m.KVPut(passTokenKey(token.ID), &storedToken{
		Level:   uint64(token.Level),
		Lineage: token.Lineage,
	})
}

// PassTokenDelete removes a destroyed token record.
func (m *Manager) PassTokenDelete(id uint64) error {
	return m.KVDelete(passTokenKey(id))
}

// PassNextTokenID allocates the next sequential token id, starting at 1. Ids
// are never reused; the counter only moves forward.
func (m *Manager) PassNextTokenID() (uint64, error) {
	var last uint64
	if _, err := m.KVGet(passNextIDKey, &last); err != nil {
		return 0, err
	}
	next := last + 1
	if err := m.KVPut(passNextIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// PassParticipantGet loads the per-account issuance record, returning a zero
// record for unknown accounts.
func (m *Manager) PassParticipantGet(addr [20]byte) (*pass.Participant, error) {
	var stored storedParticipant
	ok, err := m.KVGet(passParticipantKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	participant := &pass.Participant{Addr: addr}
	if ok {
		participant.Minted = stored.Minted
		participant.MainProfile = stored.MainProfile
	}
	return participant, nil
}

// PassParticipantPut persists the per-account issuance record.
func (m *Manager) PassParticipantPut(participant *pass.Participant) error {
	if participant == nil {
		return fmt.Errorf("state: participant record required")
	}
	return m.KVPut(passParticipantKey(participant.Addr), &storedParticipant{
		Minted:      participant.Minted,
		MainProfile: participant.MainProfile,
	})
}

// PassSupplyGet loads the live supply counters, zero when never written.
func (m *Manager) PassSupplyGet() (*pass.Supply, error) {
	var stored storedSupply
	ok, err := m.KVGet(passSupplyKey, &stored)
	if err != nil {
		return nil, err
	}
	supply := &pass.Supply{}
	if ok {
		for i := 0; i < len(supply.PerLevel) && i < len(stored.PerLevel); i++ {
			supply.PerLevel[i] = stored.PerLevel[i]
		}
		supply.Total = stored.Total
	}
	return supply, nil
}

// PassSupplyPut persists the live supply counters.
func (m *Manager) PassSupplyPut(supply *pass.Supply) error {
	if supply == nil {
		return fmt.Errorf("state: supply counters required")
	}
	perLevel := make([]uint64, len(supply.PerLevel))
	copy(perLevel, supply.PerLevel[:])
	return m.KVPut(passSupplyKey, &storedSupply{PerLevel: perLevel, Total: supply.Total})
}

// PassConfigGet loads the eligibility configuration, zero when never written.
func (m *Manager) PassConfigGet() (*pass.Config, error) {
	var stored storedConfig
	ok, err := m.KVGet(passConfigKey, &stored)
	if err != nil {
		return nil, err
	}
	cfg := &pass.Config{}
	if ok {
		cfg.InitialMintRoot = stored.InitialMintRoot
		cfg.StartTime = int64(stored.StartTime)
		cfg.PublicMintRemaining = stored.PublicMintRemaining
		cfg.Authority = stored.Authority
		cfg.Level5CapPct = stored.Level5CapPct
		cfg.Level6CapPct = stored.Level6CapPct
		cfg.FeeRecipient = stored.FeeRecipient
	}
	return cfg, nil
}

// PassConfigPut persists the eligibility configuration.
func (m *Manager) PassConfigPut(cfg *pass.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: config record required")
	}
	if cfg.StartTime < 0 {
		return fmt.Errorf("state: start time must not be negative")
	}
	return m.KVPut(passConfigKey, &storedConfig{
		InitialMintRoot:     cfg.InitialMintRoot,
		StartTime:           uint64(cfg.StartTime),
		PublicMintRemaining: cfg.PublicMintRemaining,
		Authority:           cfg.Authority,
		Level5CapPct:        cfg.Level5CapPct,
		Level6CapPct:        cfg.Level6CapPct,
		FeeRecipient:        cfg.FeeRecipient,
	})
}

// PassCampaignRootGet loads the allow-list root registered for a campaign.
func (m *Manager) PassCampaignRootGet(campaignID string) ([32]byte, bool, error) {
	var root [32]byte
	ok, err := m.KVGet(passCampaignKey(campaignID), &root)
	return root, ok, err
}

// PassCampaignRootSet registers the allow-list root for a campaign.
func (m *Manager) PassCampaignRootSet(campaignID string, root [32]byte) error {
	if campaignID == "" {
		return fmt.Errorf("state: campaign id required")
	}
	return m.KVPut(passCampaignKey(campaignID), &root)
}

// PassCurrencyGet loads an accepted currency entry.
func (m *Manager) PassCurrencyGet(symbol string) (*pass.Currency, bool, error) {
	var stored storedCurrency
	ok, err := m.KVGet(passCurrencyKey(symbol), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	price := stored.UnitPrice
	if price == nil {
		price = big.NewInt(0)
	}
	return &pass.Currency{Symbol: stored.Symbol, UnitPrice: price}, true, nil
}

// PassCurrencyPut persists an accepted currency entry.
func (m *Manager) PassCurrencyPut(currency *pass.Currency) error {
	if currency == nil || currency.Symbol == "" {
		return fmt.Errorf("state: currency symbol required")
	}
	price := currency.UnitPrice
	if price == nil {
		price = big.NewInt(0)
	}
	return m.KVPut(passCurrencyKey(currency.Symbol), &storedCurrency{
		Symbol:    currency.Symbol,
		UnitPrice: price,
	})
}

// PassCurrencyDelete drops a currency from the accepted set.
func (m *Manager) PassCurrencyDelete(symbol string) error {
	return m.KVDelete(passCurrencyKey(symbol))
}

// PassMinUpgradePaymentGet loads the minimum voucher payment configured for
// upgrades into toLevel settled in symbol.
func (m *Manager) PassMinUpgradePaymentGet(toLevel uint8, symbol string) (*big.Int, bool, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(passMinPayKey(toLevel, symbol), amount)
	if err != nil || !ok {
		return nil, false, err
	}
	return amount, true, nil
}

// PassMinUpgradePaymentSet persists a minimum voucher payment.
func (m *Manager) PassMinUpgradePaymentSet(toLevel uint8, symbol string, amount *big.Int) error {
	if symbol == "" {
		return fmt.Errorf("state: currency symbol required")
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.KVPut(passMinPayKey(toLevel, symbol), amount)
}

// IsPaused reports the module pause toggle. Missing records mean not paused.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.KVGet(pauseKey(module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// SetPaused flips the module pause toggle.
func (m *Manager) SetPaused(module string, paused bool) error {
	if module == "" {
		return fmt.Errorf("state: module name required")
	}
	return m.KVPut(pauseKey(module), paused)
}
