package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"tierpass/crypto"
	"tierpass/native/pass"
	"tierpass/observability/metrics"
)

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("address required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		decoded, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return out, fmt.Errorf("decode address: %w", err)
		}
		if len(decoded) != 20 {
			return out, fmt.Errorf("address must be 20 bytes, got %d", len(decoded))
		}
		copy(out[:], decoded)
		return out, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseRoot(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
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

func parseProof(values []string) ([][32]byte, error) {
	proof := make([][32]byte, 0, len(values))
	for _, value := range values {
		node, err := parseRoot(value)
		if err != nil {
			return nil, err
		}
		proof = append(proof, node)
	}
	return proof, nil
}

func parseSignature(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, nil
	}
	return hex.DecodeString(trimmed)
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func bech32Addr(addr [20]byte) string {
	return crypto.NewAddress(crypto.PassPrefix, addr[:]).String()
}

type tokenResult struct {
	ID      uint64 `json:"id"`
	Level   uint8  `json:"level"`
	Lineage uint64 `json:"lineage,omitempty"`
	Owner   string `json:"owner,omitempty"`
}

func (s *Server) tokenResult(token *pass.Token) tokenResult {
	result := tokenResult{ID: token.ID, Level: token.Level, Lineage: token.Lineage}
	if owner, ok := s.engine.OwnerOf(token.ID); ok {
		result.Owner = bech32Addr(owner)
	}
	return result
}

// publishSupply refreshes the supply gauges after a state-changing operation.
func (s *Server) publishSupply() {
	supply, err := s.engine.SupplySnapshot()
	if err != nil {
		return
	}
	metrics.Pass().SetSupply(supply.PerLevel, supply.Total)
}

// --- Participant methods ---

type mintInitialParams struct {
	Caller      string   `json:"caller"`
	Levels      []uint8  `json:"levels"`
	DiscountPct uint64   `json:"discountPct"`
	Currency    string   `json:"currency"`
	Proof       []string `json:"proof"`
	PayNative   string   `json:"payNative"`
}

func (s *Server) handleMintInitial(w http.ResponseWriter, req *RPCRequest) {
	var params mintInitialParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payNative, err := parseAmount(params.PayNative)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	minted, err := s.engine.MintInitial(caller, params.Levels, params.DiscountPct, params.Currency, proof, payNative)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]tokenResult, 0, len(minted))
	for _, token := range minted {
		results = append(results, s.tokenResult(token))
		metrics.Pass().RecordMint("initial")
	}
	s.publishSupply()
	writeResult(w, req.ID, results)
}

type mintVoucherParams struct {
	Participant string `json:"participant"`
	DiscountPct uint64 `json:"discountPct"`
	Expiry      int64  `json:"expiry"`
}

type mintPublicParams struct {
	Caller    string            `json:"caller"`
	Voucher   mintVoucherParams `json:"voucher"`
	Signature string            `json:"signature"`
	Currency  string            `json:"currency"`
	PayNative string            `json:"payNative"`
}

func (s *Server) handleMintPublic(w http.ResponseWriter, req *RPCRequest) {
	var params mintPublicParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	participant, err := parseAddress(params.Voucher.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payNative, err := parseAmount(params.PayNative)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	voucher := pass.MintVoucher{
		Participant: participant,
		DiscountPct: params.Voucher.DiscountPct,
		Expiry:      params.Voucher.Expiry,
	}
	minted, err := s.engine.MintPublic(caller, voucher, sig, params.Currency, payNative)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Pass().RecordMint("public")
	s.publishSupply()
	writeResult(w, req.ID, s.tokenResult(minted))
}

type upgradeParams struct {
	Caller     string   `json:"caller"`
	CampaignID string   `json:"campaignId"`
	ToLevel    uint8    `json:"toLevel"`
	Proof      []string `json:"proof"`
}

func (s *Server) handleUpgrade(w http.ResponseWriter, req *RPCRequest) {
	var params upgradeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	upgraded, err := s.engine.Upgrade(caller, params.CampaignID, params.ToLevel, proof)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Pass().RecordUpgrade(upgraded.Level)
	s.publishSupply()
	writeResult(w, req.ID, s.tokenResult(upgraded))
}

type upgradeVoucherParams struct {
	Participant string `json:"participant"`
	TokenID     uint64 `json:"tokenId"`
	ToLevel     uint8  `json:"toLevel"`
	Currency    string `json:"currency"`
	PayAmount   string `json:"payAmount"`
	Expiry      int64  `json:"expiry"`
}

type upgradeWithVoucherParams struct {
	Caller    string               `json:"caller"`
	Voucher   upgradeVoucherParams `json:"voucher"`
	Signature string               `json:"signature"`
	PayNative string               `json:"payNative"`
}

func (s *Server) handleUpgradeWithVoucher(w http.ResponseWriter, req *RPCRequest) {
	var params upgradeWithVoucherParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	participant, err := parseAddress(params.Voucher.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payAmount, err := parseAmount(params.Voucher.PayAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payNative, err := parseAmount(params.PayNative)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	voucher := pass.UpgradeVoucher{
		Participant: participant,
		TokenID:     params.Voucher.TokenID,
		ToLevel:     params.Voucher.ToLevel,
		Currency:    params.Voucher.Currency,
		PayAmount:   payAmount,
		Expiry:      params.Voucher.Expiry,
	}
	upgraded, err := s.engine.UpgradeWithVoucher(caller, voucher, sig, payNative)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Pass().RecordUpgrade(upgraded.Level)
	s.publishSupply()
	writeResult(w, req.ID, s.tokenResult(upgraded))
}

type bindParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
}

func (s *Server) handleBindProfile(w http.ResponseWriter, req *RPCRequest) {
	var params bindParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.BindProfile(caller, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"bound": params.TokenID})
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (s *Server) handleUnbindProfile(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.UnbindProfile(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"bound": 0})
}

func (s *Server) handleBurn(w http.ResponseWriter, req *RPCRequest) {
	var params bindParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Burn(caller, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.publishSupply()
	writeResult(w, req.ID, map[string]interface{}{"burned": params.TokenID})
}

// --- Query methods ---

type tokenIDParams struct {
	TokenID uint64 `json:"tokenId"`
}

func (s *Server) handleGet(w http.ResponseWriter, req *RPCRequest) {
	var params tokenIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	token, ok, err := s.engine.Token(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, fmt.Sprintf("token %d not found", params.TokenID), nil)
		return
	}
	writeResult(w, req.ID, s.tokenResult(token))
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) handleProfileOf(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	profile, err := s.engine.ProfileOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": profile})
}

func (s *Server) handleHasMinted(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	minted, err := s.engine.HasMinted(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"hasMinted": minted})
}

func (s *Server) handleSupply(w http.ResponseWriter, req *RPCRequest) {
	supply, err := s.engine.SupplySnapshot()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Pass().SetSupply(supply.PerLevel, supply.Total)
	writeResult(w, req.ID, map[string]interface{}{
		"perLevel": supply.PerLevel,
		"total":    supply.Total,
	})
}

type balanceParams struct {
	Address  string `json:"address"`
	Currency string `json:"currency"`
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var balance fmt.Stringer
	if pass.IsNativeCurrency(params.Currency) || strings.TrimSpace(params.Currency) == "" {
		balance, err = s.bank.NativeBalanceOf(addr)
	} else {
		balance, err = s.bank.TokenBalanceOf(pass.NormalizeCurrency(params.Currency), addr)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"balance": balance.String()})
}
