package pass

import "fmt"

// createToken mints a token at the supplied level for owner. The level is
// validated and recorded on the token before the ownership ledger learns about
// the id; issuing first and levelling afterwards is an invariant violation.
// Must run inside a transaction.
func (e *Engine) createToken(owner [20]byte, level uint8, lineage uint64) (*Token, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, level)
	}
	if isZeroAddress(owner) {
		return nil, fmt.Errorf("%w: zero owner", ErrInvalidParameters)
	}
	id, err := e.state.PassNextTokenID()
	if err != nil {
		return nil, err
	}
	token := &Token{ID: id, Level: level, Lineage: lineage}
	if err := e.state.PassTokenPut(token); err != nil {
		return nil, err
	}
	if err := e.ownership.Create(owner, id); err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	if err := supply.OnCreate(level); err != nil {
		return nil, err
	}
	if err := e.state.PassSupplyPut(supply); err != nil {
		return nil, err
	}
	return token, nil
}

// destroyToken burns the token: counters first, then the ownership ledger, then
// main-profile invalidation for the owner, all inside the caller's transaction
// so the binding can never be observed dangling.
func (e *Engine) destroyToken(token *Token, owner [20]byte) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidParameters)
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if err := supply.OnDestroy(token.Level); err != nil {
		return err
	}
	if err := e.state.PassSupplyPut(supply); err != nil {
		return err
	}
	if err := e.ownership.Destroy(token.ID); err != nil {
		return err
	}
	if err := e.state.PassTokenDelete(token.ID); err != nil {
		return err
	}
	return e.invalidateProfile(owner, token.ID, "burn")
}
