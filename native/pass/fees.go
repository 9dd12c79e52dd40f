package pass

import (
	"fmt"
	"math/big"
)

// acceptedCurrency resolves a currency symbol against the accepted set.
func (e *Engine) acceptedCurrency(symbol string) (*Currency, error) {
	normalized := NormalizeCurrency(symbol)
	if normalized == "" {
		return nil, fmt.Errorf("%w: currency required", ErrInvalidCurrency)
	}
	currency, ok, err := e.state.PassCurrencyGet(normalized)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, normalized)
	}
	return currency, nil
}

// discountedFee computes unitPrice*count*discountPct/100 with integer
// truncation.
func discountedFee(unitPrice *big.Int, count uint64, discountPct uint64) *big.Int {
	if unitPrice == nil {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(unitPrice, new(big.Int).SetUint64(count))
	fee.Mul(fee, new(big.Int).SetUint64(discountPct))
	return fee.Quo(fee, big.NewInt(100))
}

// chargeFee settles the required amount from payer. A zero requirement is a
// no-op. On the native path the caller's entire attached payment is forwarded
// to the fee recipient, not just the required amount; any overpayment is
// donated with no refund path. Token currencies pull exactly the required
// amount. Must run inside a transaction.
func (e *Engine) chargeFee(payer [20]byte, currency string, required, attachedNative *big.Int) error {
	if required == nil || required.Sign() == 0 {
		return nil
	}
	if required.Sign() < 0 {
		return fmt.Errorf("%w: negative fee", ErrInvalidParameters)
	}
	if e.payments == nil {
		return fmt.Errorf("%w: payment rail not configured", ErrInvalidState)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if isZeroAddress(cfg.FeeRecipient) {
		return fmt.Errorf("%w: fee recipient not configured", ErrInvalidState)
	}
	if IsNativeCurrency(currency) {
		attached := big.NewInt(0)
		if attachedNative != nil {
			attached = attachedNative
		}
		if attached.Cmp(required) < 0 {
			return fmt.Errorf("%w: need %s, attached %s", ErrInsufficientPayment, required, attached)
		}
		if err := e.payments.TransferNative(payer, cfg.FeeRecipient, attached); err != nil {
			return err
		}
		e.queueEvent(FeeChargedEvent(payer, currency, required, attached))
		return nil
	}
	if err := e.payments.TransferToken(NormalizeCurrency(currency), payer, cfg.FeeRecipient, required); err != nil {
		return err
	}
	e.queueEvent(FeeChargedEvent(payer, currency, required, required))
	return nil
}
