package pass

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e == nil || e.access == nil || !e.access.IsOwnerOrAdmin(caller) {
		return fmt.Errorf("%w: admin rights required", ErrUnauthorized)
	}
	return nil
}

func (e *Engine) updateConfig(caller [20]byte, field, value string, mutate func(cfg *Config) error) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.execute(func() error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		if err := mutate(cfg); err != nil {
			return err
		}
		if err := e.state.PassConfigPut(cfg); err != nil {
			return err
		}
		e.queueEvent(ConfigUpdatedEvent(caller, field, value))
		return nil
	})
}

// SetInitialMintRoot installs the allow-list root for the initial track. A
// zero root disables the track.
func (e *Engine) SetInitialMintRoot(caller [20]byte, root [32]byte) error {
	return e.updateConfig(caller, "initialMintRoot", hex.EncodeToString(root[:]), func(cfg *Config) error {
		cfg.InitialMintRoot = root
		return nil
	})
}

// SetStartTime sets the earliest timestamp at which initial mints are accepted.
func (e *Engine) SetStartTime(caller [20]byte, startTime int64) error {
	return e.updateConfig(caller, "startTime", strconv.FormatInt(startTime, 10), func(cfg *Config) error {
		cfg.StartTime = startTime
		return nil
	})
}

// SetPublicMintLimit resets the remaining public-mint allowance.
func (e *Engine) SetPublicMintLimit(caller [20]byte, remaining uint64) error {
	return e.updateConfig(caller, "publicMintRemaining", strconv.FormatUint(remaining, 10), func(cfg *Config) error {
		cfg.PublicMintRemaining = remaining
		return nil
	})
}

// SetAuthority installs the voucher-signing authority address.
func (e *Engine) SetAuthority(caller [20]byte, authority [20]byte) error {
	return e.updateConfig(caller, "authority", hexAddr(authority), func(cfg *Config) error {
		cfg.Authority = authority
		return nil
	})
}

// SetLevelCaps configures the proportional supply caps for levels 5 and 6,
// each a percentage of total live supply.
func (e *Engine) SetLevelCaps(caller [20]byte, level5Pct, level6Pct uint64) error {
	value := strconv.FormatUint(level5Pct, 10) + "/" + strconv.FormatUint(level6Pct, 10)
	return e.updateConfig(caller, "levelCaps", value, func(cfg *Config) error {
		if level5Pct > 100 || level6Pct > 100 {
			return fmt.Errorf("%w: cap percentage above 100", ErrInvalidParameters)
		}
		cfg.Level5CapPct = level5Pct
		cfg.Level6CapPct = level6Pct
		return nil
	})
}

// SetFeeRecipient configures the treasury account fees are forwarded to.
func (e *Engine) SetFeeRecipient(caller [20]byte, recipient [20]byte) error {
	return e.updateConfig(caller, "feeRecipient", hexAddr(recipient), func(cfg *Config) error {
		cfg.FeeRecipient = recipient
		return nil
	})
}

// SetCampaignRoot registers (or replaces) the allow-list root for an upgrade
// campaign.
func (e *Engine) SetCampaignRoot(caller [20]byte, campaignID string, root [32]byte) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if campaignID == "" {
		return fmt.Errorf("%w: campaign id required", ErrInvalidParameters)
	}
	return e.execute(func() error {
		if err := e.state.PassCampaignRootSet(campaignID, root); err != nil {
			return err
		}
		e.queueEvent(ConfigUpdatedEvent(caller, "campaignRoot:"+campaignID, hex.EncodeToString(root[:])))
		return nil
	})
}

// SetCurrency adds a currency to the accepted set or updates its unit price.
func (e *Engine) SetCurrency(caller [20]byte, symbol string, unitPrice *big.Int) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	normalized := NormalizeCurrency(symbol)
	if normalized == "" {
		return fmt.Errorf("%w: currency symbol required", ErrInvalidCurrency)
	}
	if unitPrice == nil || unitPrice.Sign() < 0 {
		return fmt.Errorf("%w: unit price must be non-negative", ErrInvalidParameters)
	}
	return e.execute(func() error {
		currency := &Currency{Symbol: normalized, UnitPrice: new(big.Int).Set(unitPrice)}
		if err := e.state.PassCurrencyPut(currency); err != nil {
			return err
		}
		e.queueEvent(ConfigUpdatedEvent(caller, "currency:"+normalized, unitPrice.String()))
		return nil
	})
}

// RemoveCurrency drops a currency from the accepted set.
func (e *Engine) RemoveCurrency(caller [20]byte, symbol string) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	normalized := NormalizeCurrency(symbol)
	if normalized == "" {
		return fmt.Errorf("%w: currency symbol required", ErrInvalidCurrency)
	}
	return e.execute(func() error {
		if err := e.state.PassCurrencyDelete(normalized); err != nil {
			return err
		}
		e.queueEvent(ConfigUpdatedEvent(caller, "currency:"+normalized, "removed"))
		return nil
	})
}

// SetMinUpgradePayment configures the minimum voucher payment for upgrades
// into toLevel settled in the supplied currency.
func (e *Engine) SetMinUpgradePayment(caller [20]byte, toLevel uint8, symbol string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if toLevel <= MinLevel || toLevel > MaxLevel {
		return fmt.Errorf("%w: level %d is not an upgrade target", ErrInvalidParameters, toLevel)
	}
	normalized := NormalizeCurrency(symbol)
	if normalized == "" {
		return fmt.Errorf("%w: currency symbol required", ErrInvalidCurrency)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidParameters)
	}
	return e.execute(func() error {
		if err := e.state.PassMinUpgradePaymentSet(toLevel, normalized, new(big.Int).Set(amount)); err != nil {
			return err
		}
		field := fmt.Sprintf("minUpgradePayment:%d:%s", toLevel, normalized)
		e.queueEvent(ConfigUpdatedEvent(caller, field, amount.String()))
		return nil
	})
}

// Pause stops all participant-facing operations.
func (e *Engine) Pause(caller [20]byte) error {
	return e.setPaused(caller, true)
}

// Resume re-enables participant-facing operations.
func (e *Engine) Resume(caller [20]byte) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller [20]byte, paused bool) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.execute(func() error {
		if err := e.state.SetPaused(ModuleName, paused); err != nil {
			return err
		}
		e.queueEvent(PauseEvent(caller, paused))
		return nil
	})
}
