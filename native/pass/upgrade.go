package pass

import (
	"fmt"
	"math/big"
)

// resolveUpgradeTarget loads the caller's bound main-profile token and checks
// the ownership and single-step level preconditions shared by both upgrade
// tracks.
func (e *Engine) resolveUpgradeTarget(caller [20]byte, toLevel uint8) (*Token, error) {
	participant, err := e.loadParticipant(caller)
	if err != nil {
		return nil, err
	}
	if participant.MainProfile == 0 {
		return nil, fmt.Errorf("%w: no main profile bound", ErrInvalidState)
	}
	token, ok, err := e.state.PassTokenGet(participant.MainProfile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: bound token %d does not exist", ErrInvalidState, participant.MainProfile)
	}
	owner, ok := e.ownership.OwnerOf(token.ID)
	if !ok || owner != caller {
		return nil, fmt.Errorf("%w: bound token %d not owned by caller", ErrInvalidState, token.ID)
	}
	if token.Level+1 != toLevel {
		return nil, fmt.Errorf("%w: token at level %d cannot jump to %d", ErrInvalidState, token.Level, toLevel)
	}
	return token, nil
}

// checkLevelCapacity re-evaluates the proportional caps at the instant of the
// upgrade; the result is never cached across operations.
func (e *Engine) checkLevelCapacity(cfg *Config, toLevel uint8) error {
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if !supply.CanReachLevel(toLevel, cfg.Level5CapPct, cfg.Level6CapPct) {
		return fmt.Errorf("%w: level %d cap reached", ErrCapacityExceeded, toLevel)
	}
	return nil
}

// replaceToken performs the burn-then-mint pair: the old token is destroyed
// (invalidating its binding), the successor is created with a lineage link and
// the main profile is rebound to it. Must run inside a transaction.
func (e *Engine) replaceToken(caller [20]byte, old *Token, toLevel uint8) (*Token, error) {
	if err := e.destroyToken(old, caller); err != nil {
		return nil, err
	}
	upgraded, err := e.createToken(caller, toLevel, old.ID)
	if err != nil {
		return nil, err
	}
	if err := e.rebindProfile(caller, upgraded.ID); err != nil {
		return nil, err
	}
	e.queueEvent(UpgradedEvent(caller, old.ID, upgraded.ID, toLevel))
	return upgraded, nil
}

// Upgrade raises the caller's bound main-profile token by exactly one level,
// authorised by a campaign allow-list proof. No fee is charged on this track.
func (e *Engine) Upgrade(caller [20]byte, campaignID string, toLevel uint8, proof [][32]byte) (*Token, error) {
	if e == nil || e.state == nil || e.ownership == nil {
		return nil, ErrInvalidState
	}
	var upgraded *Token
	err := e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		if len(proof) == 0 {
			return fmt.Errorf("%w: proof required", ErrInvalidParameters)
		}
		root, ok, err := e.state.PassCampaignRootGet(campaignID)
		if err != nil {
			return err
		}
		if !ok || isZeroRoot(root) {
			return fmt.Errorf("%w: campaign %q not registered", ErrInvalidParameters, campaignID)
		}
		if toLevel > MaxLevel {
			return fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, toLevel)
		}
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		if err := e.checkLevelCapacity(cfg, toLevel); err != nil {
			return err
		}
		token, err := e.resolveUpgradeTarget(caller, toLevel)
		if err != nil {
			return err
		}
		leaf := UpgradeLeaf(caller, token.ID, toLevel)
		if !VerifyMerkle(proof, root, leaf) {
			return fmt.Errorf("%w: merkle proof rejected", ErrUnauthorized)
		}

		upgraded, err = e.replaceToken(caller, token, toLevel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return upgraded, nil
}

// UpgradeWithVoucher raises the caller's bound token by one level against an
// authority-signed voucher. The signed payment amount must meet the configured
// per-level-and-currency minimum and is charged in full before the burn/mint
// pair executes.
func (e *Engine) UpgradeWithVoucher(caller [20]byte, voucher UpgradeVoucher, sig []byte, attachedNative *big.Int) (*Token, error) {
	if e == nil || e.state == nil || e.ownership == nil {
		return nil, ErrInvalidState
	}
	var upgraded *Token
	err := e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		if isZeroAddress(cfg.Authority) {
			return fmt.Errorf("%w: signing authority not configured", ErrInvalidState)
		}
		if len(sig) == 0 {
			return fmt.Errorf("%w: voucher signature required", ErrInvalidParameters)
		}
		if voucher.Participant != caller {
			return fmt.Errorf("%w: voucher issued to another participant", ErrUnauthorized)
		}
		if e.now() > voucher.Expiry {
			return fmt.Errorf("%w: voucher expired", ErrUnauthorized)
		}
		if voucher.ToLevel > MaxLevel {
			return fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, voucher.ToLevel)
		}
		if _, err := e.acceptedCurrency(voucher.Currency); err != nil {
			return err
		}
		if err := e.checkLevelCapacity(cfg, voucher.ToLevel); err != nil {
			return err
		}
		token, err := e.resolveUpgradeTarget(caller, voucher.ToLevel)
		if err != nil {
			return err
		}
		if voucher.TokenID != token.ID {
			return fmt.Errorf("%w: voucher covers token %d, bound profile is %d", ErrInvalidState, voucher.TokenID, token.ID)
		}
		minimum, ok, err := e.state.PassMinUpgradePaymentGet(voucher.ToLevel, NormalizeCurrency(voucher.Currency))
		if err != nil {
			return err
		}
		if ok && minimum != nil {
			pay := voucher.PayAmount
			if pay == nil {
				pay = big.NewInt(0)
			}
			if pay.Cmp(minimum) < 0 {
				return fmt.Errorf("%w: need at least %s %s", ErrInsufficientPayment, minimum, NormalizeCurrency(voucher.Currency))
			}
		}
		if !VerifySignature(voucher.Hash(), sig, cfg.Authority) {
			return fmt.Errorf("%w: voucher signature rejected", ErrUnauthorized)
		}

		if err := e.chargeFee(caller, voucher.Currency, voucher.PayAmount, attachedNative); err != nil {
			return err
		}
		upgraded, err = e.replaceToken(caller, token, voucher.ToLevel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return upgraded, nil
}

// Burn destroys a token the caller owns. It routes through the same destroy
// path as upgrades, so supply counters and the main-profile binding stay
// consistent.
func (e *Engine) Burn(caller [20]byte, tokenID uint64) error {
	if e == nil || e.state == nil || e.ownership == nil {
		return ErrInvalidState
	}
	return e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		token, ok, err := e.state.PassTokenGet(tokenID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: token %d does not exist", ErrInvalidParameters, tokenID)
		}
		owner, ok := e.ownership.OwnerOf(tokenID)
		if !ok || owner != caller {
			return fmt.Errorf("%w: caller does not own token %d", ErrInvalidState, tokenID)
		}
		if err := e.destroyToken(token, caller); err != nil {
			return err
		}
		e.queueEvent(BurnedEvent(caller, token.ID, token.Level))
		return nil
	})
}
