package pass

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"tierpass/core/events"
	"tierpass/core/types"
)

const (
	// EventTypeMinted is emitted once per token created on either mint track.
	EventTypeMinted = "pass.minted"
	// EventTypeUpgraded is emitted when a token is replaced by its one-level-up
	// successor.
	EventTypeUpgraded = "pass.upgraded"
	// EventTypeBurned is emitted when a token is destroyed outside an upgrade.
	EventTypeBurned = "pass.burned"
	// EventTypeProfileBound is emitted when a participant designates a main
	// profile token.
	EventTypeProfileBound = "pass.profile.bound"
	// EventTypeProfileUnbound is emitted when the binding is cleared, whether
	// explicitly or by burn/transfer invalidation.
	EventTypeProfileUnbound = "pass.profile.unbound"
	// EventTypeFeeCharged is emitted when a non-zero fee settles.
	EventTypeFeeCharged = "pass.fee.charged"
	// EventTypeConfigUpdated is emitted for every administrative setter.
	EventTypeConfigUpdated = "pass.config.updated"
	// EventTypePaused and EventTypeResumed track the module pause toggle.
	EventTypePaused  = "pass.paused"
	EventTypeResumed = "pass.resumed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// MintedEvent records a freshly created token.
func MintedEvent(participant [20]byte, tokenID uint64, level uint8, track string) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"tokenId":     strconv.FormatUint(tokenID, 10),
			"level":       strconv.FormatUint(uint64(level), 10),
			"track":       track,
		},
	}
}

// UpgradedEvent records a burn-then-mint upgrade with its lineage link.
func UpgradedEvent(participant [20]byte, oldID, newID uint64, newLevel uint8) *types.Event {
	return &types.Event{
		Type: EventTypeUpgraded,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"oldTokenId":  strconv.FormatUint(oldID, 10),
			"newTokenId":  strconv.FormatUint(newID, 10),
			"newLevel":    strconv.FormatUint(uint64(newLevel), 10),
		},
	}
}

// BurnedEvent records a direct burn.
func BurnedEvent(participant [20]byte, tokenID uint64, level uint8) *types.Event {
	return &types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"tokenId":     strconv.FormatUint(tokenID, 10),
			"level":       strconv.FormatUint(uint64(level), 10),
		},
	}
}

// ProfileBoundEvent records a main-profile designation.
func ProfileBoundEvent(participant [20]byte, tokenID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeProfileBound,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"tokenId":     strconv.FormatUint(tokenID, 10),
		},
	}
}

// ProfileUnboundEvent records a cleared binding; reason distinguishes explicit
// unbinds from burn/transfer invalidation.
func ProfileUnboundEvent(participant [20]byte, tokenID uint64, reason string) *types.Event {
	return &types.Event{
		Type: EventTypeProfileUnbound,
		Attributes: map[string]string{
			"participant": hexAddr(participant),
			"tokenId":     strconv.FormatUint(tokenID, 10),
			"reason":      reason,
		},
	}
}

// FeeChargedEvent records a settled fee.
func FeeChargedEvent(payer [20]byte, currency string, required, forwarded *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeeCharged,
		Attributes: map[string]string{
			"payer":     hexAddr(payer),
			"currency":  NormalizeCurrency(currency),
			"required":  formatAmount(required),
			"forwarded": formatAmount(forwarded),
		},
	}
}

// ConfigUpdatedEvent records an administrative parameter change.
func ConfigUpdatedEvent(admin [20]byte, field, value string) *types.Event {
	return &types.Event{
		Type: EventTypeConfigUpdated,
		Attributes: map[string]string{
			"admin": hexAddr(admin),
			"field": field,
			"value": value,
		},
	}
}

// PauseEvent records a pause toggle change.
func PauseEvent(admin [20]byte, paused bool) *types.Event {
	eventType := EventTypeResumed
	if paused {
		eventType = EventTypePaused
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"admin": hexAddr(admin),
		},
	}
}
