package pass

import (
	"fmt"
	"math/big"
)

const (
	trackInitial = "initial"
	trackPublic  = "public"
)

// maxDiscountPct caps the payable fraction; 100 means full price.
const maxDiscountPct = 100

// MintInitial executes the allow-list first-wave mint: one token per requested
// level, fee settled in the chosen currency at discountPct/100 of the unit
// price. The participant's one-time flag is shared with the public track. All
// checks complete before any mutation; the flag flips before payment and token
// creation so a later failure rolls the whole operation back rather than
// leaving a half-applied mint.
func (e *Engine) MintInitial(caller [20]byte, levels []uint8, discountPct uint64, currency string, proof [][32]byte, attachedNative *big.Int) ([]*Token, error) {
	if e == nil || e.state == nil || e.ownership == nil {
		return nil, ErrInvalidState
	}
	var minted []*Token
	err := e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		if isZeroRoot(cfg.InitialMintRoot) {
			return fmt.Errorf("%w: initial mint disabled", ErrInvalidState)
		}
		if e.now() < cfg.StartTime {
			return fmt.Errorf("%w: mint not started", ErrInvalidState)
		}
		if len(proof) == 0 {
			return fmt.Errorf("%w: proof required", ErrInvalidParameters)
		}
		if len(levels) == 0 {
			return fmt.Errorf("%w: at least one level required", ErrInvalidParameters)
		}
		for _, level := range levels {
			if level < MinLevel || level > MaxLevel {
				return fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, level)
			}
		}
		if discountPct > maxDiscountPct {
			return fmt.Errorf("%w: discount above 100", ErrInvalidParameters)
		}
		selected, err := e.acceptedCurrency(currency)
		if err != nil {
			return err
		}
		participant, err := e.loadParticipant(caller)
		if err != nil {
			return err
		}
		if participant.Minted {
			return ErrAlreadyParticipated
		}
		leaf := InitialMintLeaf(caller, levels, discountPct)
		if !VerifyMerkle(proof, cfg.InitialMintRoot, leaf) {
			return fmt.Errorf("%w: merkle proof rejected", ErrUnauthorized)
		}

		participant.Minted = true
		if err := e.state.PassParticipantPut(participant); err != nil {
			return err
		}
		fee := discountedFee(selected.UnitPrice, uint64(len(levels)), discountPct)
		if err := e.chargeFee(caller, currency, fee, attachedNative); err != nil {
			return err
		}
		for _, level := range levels {
			token, err := e.createToken(caller, level, 0)
			if err != nil {
				return err
			}
			minted = append(minted, token)
			e.queueEvent(MintedEvent(caller, token.ID, token.Level, trackInitial))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// MintPublic executes the voucher-gated second-wave mint: exactly one level-1
// token against an authority-signed voucher, counted against the global public
// allowance. Shares the one-time flag with the initial track, so a participant
// completes at most one of the two.
func (e *Engine) MintPublic(caller [20]byte, voucher MintVoucher, sig []byte, currency string, attachedNative *big.Int) (*Token, error) {
	if e == nil || e.state == nil || e.ownership == nil {
		return nil, ErrInvalidState
	}
	var minted *Token
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
		if voucher.DiscountPct > maxDiscountPct {
			return fmt.Errorf("%w: discount above 100", ErrInvalidParameters)
		}
		selected, err := e.acceptedCurrency(currency)
		if err != nil {
			return err
		}
		participant, err := e.loadParticipant(caller)
		if err != nil {
			return err
		}
		if participant.Minted {
			return ErrAlreadyParticipated
		}
		if !VerifySignature(voucher.Hash(), sig, cfg.Authority) {
			return fmt.Errorf("%w: voucher signature rejected", ErrUnauthorized)
		}
		if cfg.PublicMintRemaining == 0 {
			return fmt.Errorf("%w: public mint allowance exhausted", ErrCapacityExceeded)
		}

		participant.Minted = true
		if err := e.state.PassParticipantPut(participant); err != nil {
			return err
		}
		cfg.PublicMintRemaining--
		if err := e.state.PassConfigPut(cfg); err != nil {
			return err
		}
		fee := discountedFee(selected.UnitPrice, 1, voucher.DiscountPct)
		if err := e.chargeFee(caller, currency, fee, attachedNative); err != nil {
			return err
		}
		token, err := e.createToken(caller, MinLevel, 0)
		if err != nil {
			return err
		}
		minted = token
		e.queueEvent(MintedEvent(caller, token.ID, token.Level, trackPublic))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}
