package pass

import (
	"encoding/hex"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Voucher domain strings. Digests are domain-tagged so a mint voucher can never
// be replayed as an upgrade authorisation or vice versa.
const (
	MintVoucherDomainV1    = "TIERPASS_MINT_VOUCHER_V1"
	UpgradeVoucherDomainV1 = "TIERPASS_UPGRADE_VOUCHER_V1"
)

const signatureLength = 65

// MintVoucher is the offline-issued authorisation for the public mint track.
// The authority signs the canonical digest; the voucher admits exactly one
// level-1 mint for the named participant before Expiry.
type MintVoucher struct {
	Participant [20]byte
	DiscountPct uint64
	Expiry      int64
}

// Hash reconstructs the canonical message digest signed by the mint authority.
func (v MintVoucher) Hash() [32]byte {
	payload := fmt.Sprintf("%s|addr=%s|discount=%d|exp=%d",
		MintVoucherDomainV1,
		hex.EncodeToString(v.Participant[:]),
		v.DiscountPct,
		v.Expiry,
	)
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256([]byte(payload)))
	return digest
}

// UpgradeVoucher is the offline-issued authorisation for a paid upgrade. The
// signed payload binds the participant, the exact token and target level, and
// the currency/amount the participant committed to pay.
type UpgradeVoucher struct {
	Participant [20]byte
	TokenID     uint64
	ToLevel     uint8
	Currency    string
	PayAmount   *big.Int
	Expiry      int64
}

// Hash reconstructs the canonical message digest signed by the authority.
func (v UpgradeVoucher) Hash() [32]byte {
	amount := "0"
	if v.PayAmount != nil {
		amount = v.PayAmount.String()
	}
	payload := fmt.Sprintf("%s|addr=%s|token=%d|to=%d|currency=%s|amount=%s|exp=%d",
		UpgradeVoucherDomainV1,
		hex.EncodeToString(v.Participant[:]),
		v.TokenID,
		v.ToLevel,
		NormalizeCurrency(v.Currency),
		amount,
		v.Expiry,
	)
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256([]byte(payload)))
	return digest
}

// VerifySignature recovers the signer of a prefixed-hash secp256k1 signature
// over digest and compares it to the expected authority address. Malformed
// input returns false rather than an error.
func VerifySignature(digest [32]byte, sig []byte, expected [20]byte) bool {
	if len(sig) != signatureLength || isZeroAddress(expected) {
		return false
	}
	normalized := make([]byte, signatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return false
	}
	prefixed := prefixedHash(digest)
	pub, err := ethcrypto.SigToPub(prefixed, normalized)
	if err != nil {
		return false
	}
	var recovered [20]byte
	copy(recovered[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return recovered == expected
}

// SignDigest produces a prefixed-hash signature over digest with the supplied
// secp256k1 key. It is the issuing counterpart of VerifySignature, used by the
// authority tooling and tests.
func SignDigest(digest [32]byte, key interface{ Bytes() []byte }) ([]byte, error) {
	priv, err := ethcrypto.ToECDSA(key.Bytes())
	if err != nil {
		return nil, err
	}
	return ethcrypto.Sign(prefixedHash(digest), priv)
}

// prefixedHash wraps the raw digest in the standard signed-message envelope so
// generic wallet tooling can produce compatible signatures.
func prefixedHash(digest [32]byte) []byte {
	return ethcrypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), digest[:])
}
