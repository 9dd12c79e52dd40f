package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"tierpass/native/bank"
	"tierpass/native/pass"
	"tierpass/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeAlreadyMinted  = -32030
	codeCapacity       = -32031
	codeBadCurrency    = -32032
	codeShortPayment   = -32033
	codeInvalidState   = -32034
	codePaused         = -32035
)

// Server exposes the pass engine over JSON-RPC 2.0. Administrative methods
// require the bearer token configured at construction (or via the
// TIERPASS_RPC_TOKEN environment variable) and execute with the configured
// owner identity.
type Server struct {
	engine    *pass.Engine
	bank      *bank.Ledger
	owner     [20]byte
	authToken string
}

// NewServer constructs an RPC server around the supplied engine and
// settlement ledger.
func NewServer(engine *pass.Engine, settlement *bank.Ledger, owner [20]byte, authToken string) *Server {
	if strings.TrimSpace(authToken) == "" {
		authToken = strings.TrimSpace(os.Getenv("TIERPASS_RPC_TOKEN"))
	}
	return &Server{
		engine:    engine,
		bank:      settlement,
		owner:     owner,
		authToken: authToken,
	}
}

// Start serves the RPC endpoint on addr until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps the engine's error taxonomy onto JSON-RPC error codes
// and records the rejection for observability.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	code := codeServerError
	status := http.StatusBadRequest
	reason := "internal"
	switch {
	case errors.Is(err, pass.ErrInvalidParameters):
		code, reason = codeInvalidParams, "invalid_parameters"
	case errors.Is(err, pass.ErrUnauthorized):
		code, status, reason = codeUnauthorized, http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, pass.ErrAlreadyParticipated):
		code, reason = codeAlreadyMinted, "already_participated"
	case errors.Is(err, pass.ErrCapacityExceeded):
		code, reason = codeCapacity, "capacity_exceeded"
	case errors.Is(err, pass.ErrInvalidCurrency):
		code, reason = codeBadCurrency, "invalid_currency"
	case errors.Is(err, pass.ErrInsufficientPayment), errors.Is(err, bank.ErrInsufficientFunds):
		code, reason = codeShortPayment, "insufficient_payment"
	case errors.Is(err, pass.ErrInvalidState):
		code, reason = codeInvalidState, "invalid_state"
	case errors.Is(err, pass.ErrSystemPaused):
		code, status, reason = codePaused, http.StatusServiceUnavailable, "paused"
	case errors.Is(err, pass.ErrInsufficientSupply):
		status, reason = http.StatusInternalServerError, "supply_underflow"
	default:
		status = http.StatusInternalServerError
	}
	metrics.Pass().RecordRejection(reason)
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) == 1
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request body", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if isAdminMethod(req.Method) && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "admin token required", nil)
		return
	}

	switch req.Method {
	case "pass_mintInitial":
		s.handleMintInitial(w, &req)
	case "pass_mintPublic":
		s.handleMintPublic(w, &req)
	case "pass_upgrade":
		s.handleUpgrade(w, &req)
	case "pass_upgradeWithVoucher":
		s.handleUpgradeWithVoucher(w, &req)
	case "pass_bindProfile":
		s.handleBindProfile(w, &req)
	case "pass_unbindProfile":
		s.handleUnbindProfile(w, &req)
	case "pass_burn":
		s.handleBurn(w, &req)
	case "pass_get":
		s.handleGet(w, &req)
	case "pass_profileOf":
		s.handleProfileOf(w, &req)
	case "pass_hasMinted":
		s.handleHasMinted(w, &req)
	case "pass_supply":
		s.handleSupply(w, &req)
	case "pass_balanceOf":
		s.handleBalanceOf(w, &req)
	case "pass_setRoot":
		s.handleSetRoot(w, &req)
	case "pass_setStartTime":
		s.handleSetStartTime(w, &req)
	case "pass_setCampaignRoot":
		s.handleSetCampaignRoot(w, &req)
	case "pass_setPublicMintLimit":
		s.handleSetPublicMintLimit(w, &req)
	case "pass_setAuthority":
		s.handleSetAuthority(w, &req)
	case "pass_setCaps":
		s.handleSetCaps(w, &req)
	case "pass_setFeeRecipient":
		s.handleSetFeeRecipient(w, &req)
	case "pass_setCurrency":
		s.handleSetCurrency(w, &req)
	case "pass_removeCurrency":
		s.handleRemoveCurrency(w, &req)
	case "pass_setMinUpgradePayment":
		s.handleSetMinUpgradePayment(w, &req)
	case "pass_pause":
		s.handlePause(w, &req)
	case "pass_resume":
		s.handleResume(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

func isAdminMethod(method string) bool {
	switch method {
	case "pass_setRoot", "pass_setStartTime", "pass_setCampaignRoot", "pass_setPublicMintLimit",
		"pass_setAuthority", "pass_setCaps", "pass_setFeeRecipient", "pass_setCurrency",
		"pass_removeCurrency", "pass_setMinUpgradePayment", "pass_pause", "pass_resume":
		return true
	}
	return false
}
