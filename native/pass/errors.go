package pass

import "errors"

var (
	// ErrInvalidParameters marks malformed or out-of-range caller input.
	ErrInvalidParameters = errors.New("pass: invalid parameters")
	// ErrUnauthorized marks a failed proof or signature verification, or a
	// caller lacking admin rights.
	ErrUnauthorized = errors.New("pass: unauthorized")
	// ErrAlreadyParticipated marks a second mint attempt by a participant whose
	// one-time flag is already set.
	ErrAlreadyParticipated = errors.New("pass: already participated")
	// ErrCapacityExceeded marks an exhausted public-mint allowance or a
	// proportional level cap that would be breached.
	ErrCapacityExceeded = errors.New("pass: capacity exceeded")
	// ErrInvalidCurrency marks a currency that is not in the accepted set.
	ErrInvalidCurrency = errors.New("pass: currency not accepted")
	// ErrInsufficientPayment marks an attached or signed payment below the
	// required amount.
	ErrInsufficientPayment = errors.New("pass: insufficient payment")
	// ErrInvalidState marks a main-profile or ownership mismatch, or a
	// level-transition target that is not exactly one above the current level.
	ErrInvalidState = errors.New("pass: invalid state")
	// ErrSystemPaused rejects participant-facing calls while the module pause
	// toggle is set.
	ErrSystemPaused = errors.New("pass: system paused")
	// ErrInsufficientSupply marks a ledger underflow. This is an internal
	// invariant breach, not a caller error; correct operation never reaches it.
	ErrInsufficientSupply = errors.New("pass: insufficient supply")
)
