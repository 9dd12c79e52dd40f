package pass

import (
	"math/big"
	"strings"
)

// Level bounds for issued passes. Levels above four are additionally gated by
// the proportional supply caps.
const (
	MinLevel uint8 = 1
	MaxLevel uint8 = 6
)

// NativeCurrency is the sentinel symbol for the chain's native settlement asset.
const NativeCurrency = "NATIVE"

// Token is a live membership pass. The level is fixed at creation and never
// mutates; upgrades destroy the old token and mint a replacement one level up.
type Token struct {
	ID      uint64
	Level   uint8
	Lineage uint64 // token id this pass was upgraded from, 0 for original mints
}

// Copy returns a defensive copy of the token.
func (t *Token) Copy() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Participant tracks the per-account issuance state. Minted is a one-time flag
// shared between the initial and public mint tracks; once set it is never
// cleared. MainProfile is the id of the currently designated pass, 0 when unset.
type Participant struct {
	Addr        [20]byte
	Minted      bool
	MainProfile uint64
}

// Copy returns a defensive copy of the participant record.
func (p *Participant) Copy() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Supply carries the live per-level counters. Total always equals the sum of
// the per-level counts.
type Supply struct {
	PerLevel [MaxLevel]uint64
	Total    uint64
}

// Copy returns a defensive copy of the counters.
func (s *Supply) Copy() *Supply {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// LevelCount returns the live count for the supplied level, 0 for out-of-range
// input.
func (s *Supply) LevelCount(level uint8) uint64 {
	if s == nil || level < MinLevel || level > MaxLevel {
		return 0
	}
	return s.PerLevel[level-1]
}

// Config is the persisted eligibility configuration. A zero InitialMintRoot
// disables the initial-mint track entirely.
type Config struct {
	InitialMintRoot     [32]byte
	StartTime           int64
	PublicMintRemaining uint64
	Authority           [20]byte
	Level5CapPct        uint64
	Level6CapPct        uint64
	FeeRecipient        [20]byte
}

// Copy returns a defensive copy of the configuration.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Currency is an accepted settlement currency with its per-token unit price.
// The native asset uses the NativeCurrency sentinel symbol.
type Currency struct {
	Symbol    string
	UnitPrice *big.Int
}

// Copy returns a defensive copy of the currency entry.
func (c *Currency) Copy() *Currency {
	if c == nil {
		return nil
	}
	clone := *c
	if c.UnitPrice != nil {
		clone.UnitPrice = new(big.Int).Set(c.UnitPrice)
	}
	return &clone
}

// NormalizeCurrency canonicalises a currency symbol for lookups.
func NormalizeCurrency(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsNativeCurrency reports whether the symbol denotes the native asset.
func IsNativeCurrency(symbol string) bool {
	return NormalizeCurrency(symbol) == NativeCurrency
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func isZeroRoot(root [32]byte) bool {
	var zero [32]byte
	return root == zero
}
