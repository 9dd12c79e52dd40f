package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tierpass/crypto"
)

// Genesis is the one-shot issuance parameter seed applied on first boot. All
// fields are optional; omitted sections leave the corresponding feature
// disabled until an admin configures it at runtime.
type Genesis struct {
	FeeRecipient       string               `yaml:"feeRecipient"`
	Authority          string               `yaml:"authority"`
	InitialMintRoot    string               `yaml:"initialMintRoot"`
	StartTime          int64                `yaml:"startTime"`
	PublicMintLimit    uint64               `yaml:"publicMintLimit"`
	Level5CapPct       uint64               `yaml:"level5CapPct"`
	Level6CapPct       uint64               `yaml:"level6CapPct"`
	Campaigns          map[string]string    `yaml:"campaigns"`
	Currencies         []GenesisCurrency    `yaml:"currencies"`
	MinUpgradePayments []GenesisMinPayment  `yaml:"minUpgradePayments"`
	Balances           []GenesisBalance     `yaml:"balances"`
}

// GenesisCurrency seeds one accepted currency with its unit price.
type GenesisCurrency struct {
	Symbol    string `yaml:"symbol"`
	UnitPrice string `yaml:"unitPrice"`
}

// GenesisMinPayment seeds one minimum voucher payment entry.
type GenesisMinPayment struct {
	ToLevel  uint8  `yaml:"toLevel"`
	Currency string `yaml:"currency"`
	Amount   string `yaml:"amount"`
}

// GenesisBalance seeds settlement balances for an account.
type GenesisBalance struct {
	Address string            `yaml:"address"`
	Native  string            `yaml:"native"`
	Tokens  map[string]string `yaml:"tokens"`
}

// LoadGenesis reads and decodes the genesis params file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	genesis := &Genesis{}
	if err := yaml.Unmarshal(raw, genesis); err != nil {
		return nil, fmt.Errorf("genesis: decode %s: %w", path, err)
	}
	return genesis, nil
}

// ParseAddress decodes a bech32 account address into its raw 20 bytes.
func ParseAddress(addr string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return out, fmt.Errorf("address required")
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

// ParseRoot decodes a hex-encoded 32-byte merkle root. Empty input yields the
// zero root, which disables the corresponding track.
func ParseRoot(root string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(root), "0x")
	if trimmed == "" {
		return out, nil
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("decode root: %w", err)
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("root must be 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// ParseAmount decodes a base-10 amount string, empty meaning zero.
func ParseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", amount)
	}
	return parsed, nil
}
