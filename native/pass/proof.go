package pass

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Leaf domain tags keep the two allow-list tracks from accepting each other's
// proofs even when the underlying fields collide.
const (
	initialMintLeafDomain = "TIERPASS_MINT_LEAF_V1"
	upgradeLeafDomain     = "TIERPASS_UPGRADE_LEAF_V1"
)

// InitialMintLeaf derives the allow-list leaf committed for an initial mint:
// the participant, the exact ordered level list they may mint, and their
// discount percentage.
func InitialMintLeaf(participant [20]byte, levels []uint8, discountPct uint64) [32]byte {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		parts = append(parts, strconv.FormatUint(uint64(level), 10))
	}
	payload := fmt.Sprintf("%s|addr=%s|levels=%s|discount=%d",
		initialMintLeafDomain,
		hex.EncodeToString(participant[:]),
		strings.Join(parts, ","),
		discountPct,
	)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256([]byte(payload)))
	return leaf
}

// UpgradeLeaf derives the campaign allow-list leaf authorising an upgrade of a
// specific token to a specific target level.
func UpgradeLeaf(participant [20]byte, tokenID uint64, toLevel uint8) [32]byte {
	payload := fmt.Sprintf("%s|addr=%s|token=%d|to=%d",
		upgradeLeafDomain,
		hex.EncodeToString(participant[:]),
		tokenID,
		toLevel,
	)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256([]byte(payload)))
	return leaf
}

// VerifyMerkle checks a sorted-pair keccak256 inclusion proof. It fails closed:
// a zero root never admits any leaf, and an empty proof only matches when the
// leaf itself equals the root.
func VerifyMerkle(proof [][32]byte, root [32]byte, leaf [32]byte) bool {
	if isZeroRoot(root) {
		return false
	}
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) <= 0 {
		copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	} else {
		copy(out[:], ethcrypto.Keccak256(b[:], a[:]))
	}
	return out
}
