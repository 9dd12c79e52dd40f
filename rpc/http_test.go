package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"tierpass/core/state"
	"tierpass/crypto"
	"tierpass/native/bank"
	"tierpass/native/pass"
	"tierpass/native/registry"
	"tierpass/storage"
)

const testAdminToken = "test-admin-token"

type rpcFixture struct {
	server *Server
	engine *pass.Engine
	owner  [20]byte
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	owners := registry.NewLedger(manager)
	settlement := bank.NewLedger(manager)

	var owner [20]byte
	owner[0] = 0xaa
	var feeSink [20]byte
	feeSink[0] = 0xfb

	engine := pass.NewEngine()
	engine.SetState(manager)
	engine.SetOwnership(owners)
	engine.SetPayments(settlement)
	engine.SetAccessControl(pass.NewAdminSet(owner))
	owners.RegisterHook(engine.HandleTransfer)
	require.NoError(t, engine.SetFeeRecipient(owner, feeSink))
	require.NoError(t, engine.SetCurrency(owner, pass.NativeCurrency, big.NewInt(10)))

	return &rpcFixture{
		server: NewServer(engine, settlement, owner, testAdminToken),
		engine: engine,
		owner:  owner,
	}
}

func (f *rpcFixture) call(t *testing.T, method string, params interface{}, token string) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		rawParams = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: "2.0", Method: method, Params: rawParams, ID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.handle(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func TestHandleRejectsNonPOST(t *testing.T) {
	f := newRPCFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.server.handle(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleUnknownMethod(t *testing.T) {
	f := newRPCFixture(t)
	rec, resp := f.call(t, "pass_noSuchMethod", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHandleMalformedJSON(t *testing.T) {
	f := newRPCFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.handle(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, codeParseError, resp.Error.Code)
}

func TestAdminMethodRequiresBearerToken(t *testing.T) {
	f := newRPCFixture(t)

	rec, resp := f.call(t, "pass_setStartTime", map[string]interface{}{"startTime": 1}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	rec, resp = f.call(t, "pass_setStartTime", map[string]interface{}{"startTime": 1}, "wrong-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)

	_, resp = f.call(t, "pass_setStartTime", map[string]interface{}{"startTime": 1}, testAdminToken)
	require.Nil(t, resp.Error)
}

func TestMintInitialOverRPC(t *testing.T) {
	f := newRPCFixture(t)
	participant := [20]byte{0x01}

	leaf := pass.InitialMintLeaf(participant, []uint8{1, 2}, 0)
	sibling := [32]byte{0x05}
	root := sortedKeccak(leaf, sibling)
	_, resp := f.call(t, "pass_setRoot", map[string]interface{}{
		"root": "0x" + hex.EncodeToString(root[:]),
	}, testAdminToken)
	require.Nil(t, resp.Error)

	_, resp = f.call(t, "pass_mintInitial", map[string]interface{}{
		"caller":      hexAddr(participant),
		"levels":      []uint8{1, 2},
		"discountPct": 0,
		"currency":    "NATIVE",
		"proof":       []string{"0x" + hex.EncodeToString(sibling[:])},
	}, "")
	require.Nil(t, resp.Error)

	var minted []tokenResult
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &minted))
	require.Len(t, minted, 2)
	require.Equal(t, uint8(1), minted[0].Level)
	require.Equal(t, uint8(2), minted[1].Level)

	// A second claim maps onto the dedicated error code.
	rec, resp := f.call(t, "pass_mintInitial", map[string]interface{}{
		"caller":      hexAddr(participant),
		"levels":      []uint8{1},
		"discountPct": 0,
		"currency":    "NATIVE",
		"proof":       []string{"0x" + hex.EncodeToString(sibling[:])},
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeAlreadyMinted, resp.Error.Code)
}

func TestQueryMethodsOverRPC(t *testing.T) {
	f := newRPCFixture(t)
	participant := [20]byte{0x02}

	leaf := pass.InitialMintLeaf(participant, []uint8{3}, 0)
	sibling := [32]byte{0x06}
	root := sortedKeccak(leaf, sibling)
	_, resp := f.call(t, "pass_setRoot", map[string]interface{}{
		"root": "0x" + hex.EncodeToString(root[:]),
	}, testAdminToken)
	require.Nil(t, resp.Error)
	_, resp = f.call(t, "pass_mintInitial", map[string]interface{}{
		"caller":   hexAddr(participant),
		"levels":   []uint8{3},
		"currency": "NATIVE",
		"proof":    []string{"0x" + hex.EncodeToString(sibling[:])},
	}, "")
	require.Nil(t, resp.Error)

	_, resp = f.call(t, "pass_get", map[string]interface{}{"tokenId": 1}, "")
	require.Nil(t, resp.Error)

	rec, resp := f.call(t, "pass_get", map[string]interface{}{"tokenId": 404}, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)

	_, resp = f.call(t, "pass_hasMinted", map[string]interface{}{"address": hexAddr(participant)}, "")
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	require.Equal(t, true, result["hasMinted"])

	_, resp = f.call(t, "pass_supply", nil, "")
	require.Nil(t, resp.Error)
	supply := resp.Result.(map[string]interface{})
	require.EqualValues(t, 1, supply["total"])

	_, resp = f.call(t, "pass_balanceOf", map[string]interface{}{"address": hexAddr(participant)}, "")
	require.Nil(t, resp.Error)
	balance := resp.Result.(map[string]interface{})
	require.Equal(t, "0", balance["balance"])
}

func TestPauseOverRPCMapsToServiceUnavailable(t *testing.T) {
	f := newRPCFixture(t)
	participant := [20]byte{0x03}

	_, resp := f.call(t, "pass_pause", nil, testAdminToken)
	require.Nil(t, resp.Error)

	rec, resp := f.call(t, "pass_bindProfile", map[string]interface{}{
		"caller":  hexAddr(participant),
		"tokenId": 1,
	}, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, codePaused, resp.Error.Code)
}

func TestParseAddressAcceptsBothEncodings(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	raw := key.PubKey().RawAddress()

	fromHex, err := parseAddress(hexAddr(raw))
	require.NoError(t, err)
	require.Equal(t, raw, fromHex)

	fromBech, err := parseAddress(key.PubKey().Address().String())
	require.NoError(t, err)
	require.Equal(t, raw, fromBech)

	_, err = parseAddress("0x1234")
	require.Error(t, err)
	_, err = parseAddress("")
	require.Error(t, err)
}

func sortedKeccak(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}
