package rpc

import (
	"net/http"
)

// Admin handlers execute with the configured owner identity once the bearer
// token check in the dispatcher has passed.

type rootParams struct {
	Root string `json:"root"`
}

func (s *Server) handleSetRoot(w http.ResponseWriter, req *RPCRequest) {
	var params rootParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	root, err := parseRoot(params.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetInitialMintRoot(s.owner, root); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type startTimeParams struct {
	StartTime int64 `json:"startTime"`
}

func (s *Server) handleSetStartTime(w http.ResponseWriter, req *RPCRequest) {
	var params startTimeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetStartTime(s.owner, params.StartTime); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type campaignRootParams struct {
	CampaignID string `json:"campaignId"`
	Root       string `json:"root"`
}

func (s *Server) handleSetCampaignRoot(w http.ResponseWriter, req *RPCRequest) {
	var params campaignRootParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	root, err := parseRoot(params.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetCampaignRoot(s.owner, params.CampaignID, root); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type limitParams struct {
	Remaining uint64 `json:"remaining"`
}

func (s *Server) handleSetPublicMintLimit(w http.ResponseWriter, req *RPCRequest) {
	var params limitParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetPublicMintLimit(s.owner, params.Remaining); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleSetAuthority(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetAuthority(s.owner, authority); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type capsParams struct {
	Level5Pct uint64 `json:"level5Pct"`
	Level6Pct uint64 `json:"level6Pct"`
}

func (s *Server) handleSetCaps(w http.ResponseWriter, req *RPCRequest) {
	var params capsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetLevelCaps(s.owner, params.Level5Pct, params.Level6Pct); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleSetFeeRecipient(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetFeeRecipient(s.owner, recipient); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type currencyParams struct {
	Symbol    string `json:"symbol"`
	UnitPrice string `json:"unitPrice"`
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, req *RPCRequest) {
	var params currencyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount(params.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetCurrency(s.owner, params.Symbol, price); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleRemoveCurrency(w http.ResponseWriter, req *RPCRequest) {
	var params currencyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.RemoveCurrency(s.owner, params.Symbol); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

type minPaymentParams struct {
	ToLevel  uint8  `json:"toLevel"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func (s *Server) handleSetMinUpgradePayment(w http.ResponseWriter, req *RPCRequest) {
	var params minPaymentParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetMinUpgradePayment(s.owner, params.ToLevel, params.Currency, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handlePause(w http.ResponseWriter, req *RPCRequest) {
	if err := s.engine.Pause(s.owner); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "paused")
}

func (s *Server) handleResume(w http.ResponseWriter, req *RPCRequest) {
	if err := s.engine.Resume(s.owner); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "resumed")
}
