package pass

import "fmt"

// BindProfile designates tokenID as the caller's main profile. The caller must
// currently own the token.
func (e *Engine) BindProfile(caller [20]byte, tokenID uint64) error {
	if e == nil || e.state == nil || e.ownership == nil {
		return ErrInvalidState
	}
	return e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		if tokenID == 0 {
			return fmt.Errorf("%w: token id required", ErrInvalidParameters)
		}
		owner, ok := e.ownership.OwnerOf(tokenID)
		if !ok || owner != caller {
			return fmt.Errorf("%w: caller does not own token %d", ErrInvalidState, tokenID)
		}
		participant, err := e.loadParticipant(caller)
		if err != nil {
			return err
		}
		participant.MainProfile = tokenID
		if err := e.state.PassParticipantPut(participant); err != nil {
			return err
		}
		e.queueEvent(ProfileBoundEvent(caller, tokenID))
		return nil
	})
}

// UnbindProfile clears the caller's main-profile binding unconditionally.
func (e *Engine) UnbindProfile(caller [20]byte) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	return e.execute(func() error {
		if err := e.guard(); err != nil {
			return err
		}
		participant, err := e.loadParticipant(caller)
		if err != nil {
			return err
		}
		previous := participant.MainProfile
		participant.MainProfile = 0
		if err := e.state.PassParticipantPut(participant); err != nil {
			return err
		}
		e.queueEvent(ProfileUnboundEvent(caller, previous, "unbind"))
		return nil
	})
}

// HandleTransfer is the ownership ledger's transfer notification hook. It fires
// on every ownership change including mint (from zero) and burn (to zero) and
// clears a main-profile binding the moment its token leaves the binder's
// account. Runs inside whatever transaction triggered the transfer.
func (e *Engine) HandleTransfer(from, to [20]byte, tokenID uint64) error {
	if e == nil || e.state == nil {
		return ErrInvalidState
	}
	if isZeroAddress(from) {
		return nil
	}
	return e.invalidateProfile(from, tokenID, "transfer")
}

// invalidateProfile clears the binding when it points at tokenID. Idempotent;
// callers invoke it from both the burn path and the transfer hook.
func (e *Engine) invalidateProfile(owner [20]byte, tokenID uint64, reason string) error {
	if isZeroAddress(owner) {
		return nil
	}
	participant, err := e.loadParticipant(owner)
	if err != nil {
		return err
	}
	if participant.MainProfile != tokenID {
		return nil
	}
	participant.MainProfile = 0
	if err := e.state.PassParticipantPut(participant); err != nil {
		return err
	}
	e.queueEvent(ProfileUnboundEvent(owner, tokenID, reason))
	return nil
}

// rebindProfile points the binding at a replacement token during an upgrade.
func (e *Engine) rebindProfile(owner [20]byte, tokenID uint64) error {
	participant, err := e.loadParticipant(owner)
	if err != nil {
		return err
	}
	participant.MainProfile = tokenID
	if err := e.state.PassParticipantPut(participant); err != nil {
		return err
	}
	e.queueEvent(ProfileBoundEvent(owner, tokenID))
	return nil
}
