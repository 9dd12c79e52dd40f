package pass_test

import (
	"errors"
	"math/big"
	"testing"

	"tierpass/native/pass"
)

func TestMintInitialIssuesOneTokenPerLevel(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x31)
	e.fundNative(participant, 30)

	levels := []uint8{1, 3}
	proof := e.allowlist(pass.InitialMintLeaf(participant, levels, 100))
	tokens, err := e.engine.MintInitial(participant, levels, 100, pass.NativeCurrency, proof, big.NewInt(20))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("minted %d tokens, want 2", len(tokens))
	}
	if tokens[0].Level != 1 || tokens[1].Level != 3 {
		t.Fatalf("levels = %d,%d", tokens[0].Level, tokens[1].Level)
	}
	for _, token := range tokens {
		owner, ok := e.engine.OwnerOf(token.ID)
		if !ok || owner != participant {
			t.Fatalf("token %d not owned by participant", token.ID)
		}
		if token.Lineage != 0 {
			t.Fatalf("fresh token %d carries lineage %d", token.ID, token.Lineage)
		}
	}

	// Full price at unit price 10 for two tokens.
	if got := e.nativeBalance(e.feeSink); got != 20 {
		t.Fatalf("fee sink balance = %d, want 20", got)
	}
	if got := e.nativeBalance(participant); got != 10 {
		t.Fatalf("participant balance = %d, want 10", got)
	}

	minted, err := e.engine.HasMinted(participant)
	e.must(err)
	if !minted {
		t.Fatal("participation flag not set")
	}
	supply, err := e.engine.SupplySnapshot()
	e.must(err)
	if supply.Total != 2 || supply.PerLevel[0] != 1 || supply.PerLevel[2] != 1 {
		t.Fatalf("supply = total %d, per-level %v", supply.Total, supply.PerLevel)
	}
}

func TestMintInitialDiscountIsPayableFraction(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x32)
	e.fundNative(participant, 10)

	// discountPct 50 of unit price 10 means paying 5.
	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{2}, 50))
	if _, err := e.engine.MintInitial(participant, []uint8{2}, 50, pass.NativeCurrency, proof, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := e.nativeBalance(e.feeSink); got != 5 {
		t.Fatalf("fee sink balance = %d, want 5", got)
	}
}

func TestMintInitialForwardsOverpayment(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x33)
	e.fundNative(participant, 50)

	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 100))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 100, pass.NativeCurrency, proof, big.NewInt(25)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// The whole attached amount moves, not just the required 10.
	if got := e.nativeBalance(e.feeSink); got != 25 {
		t.Fatalf("fee sink balance = %d, want 25", got)
	}
	if got := e.nativeBalance(participant); got != 25 {
		t.Fatalf("participant balance = %d, want 25", got)
	}
}

func TestMintInitialSecondClaimRejected(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x34)

	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); !errors.Is(err, pass.ErrAlreadyParticipated) {
		t.Fatalf("expected ErrAlreadyParticipated, got %v", err)
	}
}

func TestMintInitialRejectsForgedProof(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x35)

	e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))
	forged := [][32]byte{{0xde, 0xad}}
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, forged, nil); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	minted, err := e.engine.HasMinted(participant)
	e.must(err)
	if minted {
		t.Fatal("participation flag set by rejected mint")
	}
}

func TestMintInitialProofBoundToParameters(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x36)

	// Proof admits a free claim for level 1; asking for level 2 with the same
	// proof must fail because the leaf commits to the requested levels.
	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))
	if _, err := e.engine.MintInitial(participant, []uint8{2}, 0, pass.NativeCurrency, proof, nil); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMintInitialDisabledWithoutRoot(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x37)

	proof := [][32]byte{{0x01}}
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); !errors.Is(err, pass.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestMintInitialHonorsStartTime(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x38)
	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))
	e.must(e.engine.SetStartTime(e.owner, e.now+60))

	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); !errors.Is(err, pass.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before start, got %v", err)
	}

	e.now += 60
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, pass.NativeCurrency, proof, nil); err != nil {
		t.Fatalf("mint at start time: %v", err)
	}
}

func TestMintInitialRollsBackOnShortPayment(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x39)
	e.fundNative(participant, 50)

	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 100))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 100, pass.NativeCurrency, proof, big.NewInt(3)); !errors.Is(err, pass.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	// The participation flag flips before payment inside the transaction; a
	// payment failure must roll it back along with every counter.
	minted, err := e.engine.HasMinted(participant)
	e.must(err)
	if minted {
		t.Fatal("participation flag survived rollback")
	}
	supply, err := e.engine.SupplySnapshot()
	e.must(err)
	if supply.Total != 0 {
		t.Fatalf("supply total = %d after rollback, want 0", supply.Total)
	}
	if got := e.nativeBalance(participant); got != 50 {
		t.Fatalf("participant balance = %d after rollback, want 50", got)
	}
}

func TestMintInitialUnknownCurrency(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x3a)

	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 0))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 0, "DOGE", proof, nil); !errors.Is(err, pass.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestMintInitialTokenCurrencyChargesExactFee(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x3b)
	e.must(e.engine.SetCurrency(e.owner, "USDC", big.NewInt(7)))
	e.must(e.settlement.CreditToken("USDC", participant, big.NewInt(20)))

	proof := e.allowlist(pass.InitialMintLeaf(participant, []uint8{1}, 100))
	if _, err := e.engine.MintInitial(participant, []uint8{1}, 100, "USDC", proof, nil); err != nil {
		t.Fatalf("mint: %v", err)
	}

	sinkBalance, err := e.settlement.TokenBalanceOf("USDC", e.feeSink)
	e.must(err)
	if sinkBalance.Int64() != 7 {
		t.Fatalf("fee sink USDC balance = %s, want 7", sinkBalance)
	}
	payerBalance, err := e.settlement.TokenBalanceOf("USDC", participant)
	e.must(err)
	if payerBalance.Int64() != 13 {
		t.Fatalf("participant USDC balance = %s, want 13", payerBalance)
	}
}

func TestMintPublicVoucher(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x41)
	e.fundNative(participant, 10)
	e.must(e.engine.SetPublicMintLimit(e.owner, 5))

	voucher := pass.MintVoucher{Participant: participant, DiscountPct: 100, Expiry: e.now + 300}
	token, err := e.engine.MintPublic(participant, voucher, e.signMint(voucher), pass.NativeCurrency, big.NewInt(10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if token.Level != pass.MinLevel {
		t.Fatalf("public mint produced level %d, want %d", token.Level, pass.MinLevel)
	}
	if got := e.nativeBalance(e.feeSink); got != 10 {
		t.Fatalf("fee sink balance = %d, want 10", got)
	}
}

func TestMintPublicSharesOneTimeFlagWithInitial(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x42)
	e.must(e.engine.SetPublicMintLimit(e.owner, 5))
	e.mintAt(participant, 1)

	voucher := pass.MintVoucher{Participant: participant, DiscountPct: 0, Expiry: e.now + 300}
	if _, err := e.engine.MintPublic(participant, voucher, e.signMint(voucher), pass.NativeCurrency, nil); !errors.Is(err, pass.ErrAlreadyParticipated) {
		t.Fatalf("expected ErrAlreadyParticipated, got %v", err)
	}
}

func TestMintPublicAllowanceExhausted(t *testing.T) {
	e := newEnv(t)
	first, second := testAddr(0x43), testAddr(0x44)
	e.must(e.engine.SetPublicMintLimit(e.owner, 1))

	v1 := pass.MintVoucher{Participant: first, DiscountPct: 0, Expiry: e.now + 300}
	if _, err := e.engine.MintPublic(first, v1, e.signMint(v1), pass.NativeCurrency, nil); err != nil {
		t.Fatalf("first mint: %v", err)
	}

	v2 := pass.MintVoucher{Participant: second, DiscountPct: 0, Expiry: e.now + 300}
	if _, err := e.engine.MintPublic(second, v2, e.signMint(v2), pass.NativeCurrency, nil); !errors.Is(err, pass.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	// The loser's one-time flag must not be consumed.
	minted, err := e.engine.HasMinted(second)
	e.must(err)
	if minted {
		t.Fatal("rejected mint consumed the participation flag")
	}
}

func TestMintPublicExpiredVoucher(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x45)
	e.must(e.engine.SetPublicMintLimit(e.owner, 5))

	voucher := pass.MintVoucher{Participant: participant, DiscountPct: 0, Expiry: e.now - 1}
	if _, err := e.engine.MintPublic(participant, voucher, e.signMint(voucher), pass.NativeCurrency, nil); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMintPublicRejectsForeignSigner(t *testing.T) {
	e := newEnv(t)
	participant := testAddr(0x46)
	e.must(e.engine.SetPublicMintLimit(e.owner, 5))

	voucher := pass.MintVoucher{Participant: participant, DiscountPct: 0, Expiry: e.now + 300}
	rogue := newTestKey(t)
	sig, err := pass.SignDigest(voucher.Hash(), rogue)
	e.must(err)
	if _, err := e.engine.MintPublic(participant, voucher, sig, pass.NativeCurrency, nil); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMintPublicVoucherBoundToParticipant(t *testing.T) {
	e := newEnv(t)
	holder, thief := testAddr(0x47), testAddr(0x48)
	e.must(e.engine.SetPublicMintLimit(e.owner, 5))

	voucher := pass.MintVoucher{Participant: holder, DiscountPct: 0, Expiry: e.now + 300}
	if _, err := e.engine.MintPublic(thief, voucher, e.signMint(voucher), pass.NativeCurrency, nil); !errors.Is(err, pass.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
