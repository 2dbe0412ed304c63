package seal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

const testPackageID = "0x00000000000000000000000000000000000000000000000000000000000000aa"
const testAddress = "0x00000000000000000000000000000000000000000000000000000000000000b0"

type testKeyServer struct {
	info   KeyServerInfo
	msk    *MasterKey
	server *httptest.Server
	deny   atomic.Bool
	calls  atomic.Int32
}

func (s *testKeyServer) handle(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	if s.deny.Load() {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"NoAccess"}`))
		return
	}

	var req FetchKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	txBytes, _ := base64.StdEncoding.DecodeString(req.PTB)
	if err := req.Certificate.VerifyRequestSignature(txBytes, req.RequestSignature); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	tx, err := authtx.ParseTransaction(txBytes)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	packageID, _ := hexutils.DecodeObjectID(testPackageID)
	resp := FetchKeyResponse{RequestID: req.RequestID}
	for _, call := range tx.Commands {
		id, err := call.KeyID()
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		usk, _ := s.msk.ExtractUserSecretKey(fullID(packageID, id))
		resp.DecryptionKeys = append(resp.DecryptionKeys, DecryptionKey{
			ID:  hexutils.EncodeHex(id),
			Key: base64.StdEncoding.EncodeToString(usk),
		})
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestKeyServers(t *testing.T, n int) []*testKeyServer {
	servers := make([]*testKeyServer, 0, n)
	for i := 0; i < n; i++ {
		msk, err := GenerateMasterKey(nil)
		if err != nil {
			t.Fatal(err)
		}
		s := &testKeyServer{msk: msk}
		s.server = httptest.NewServer(http.HandlerFunc(s.handle))
		t.Cleanup(s.server.Close)
		s.info = KeyServerInfo{
			ObjectID:  fmt.Sprintf("0x%064x", i+1),
			URL:       s.server.URL,
			PublicKey: msk.PublicKey(),
		}
		servers = append(servers, s)
	}

	return servers
}

func infosOf(servers []*testKeyServer) []KeyServerInfo {
	infos := make([]KeyServerInfo, 0, len(servers))
	for _, s := range servers {
		infos = append(infos, s.info)
	}
	return infos
}

func newTestSessionKey(t *testing.T) *SessionKey {
	sk, err := NewSessionKey(testAddress, testPackageID, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	sk.SetPersonalMessageSignature("test-signature")
	return sk
}

func testKeyID(surveyByte byte, nonce byte) []byte {
	surveyID, _ := hexutils.DecodeObjectID(fmt.Sprintf("0x%x", surveyByte))
	return append(surveyID, nonce, nonce, nonce, nonce, nonce)
}

func approveTx(ids ...[]byte) []byte {
	tx := &authtx.Transaction{Kind: authtx.TransactionKindProgrammable}
	for _, id := range ids {
		tx.Commands = append(tx.Commands, authtx.MoveCall{
			Package:   testPackageID,
			Module:    "survey",
			Function:  authtx.ApproveFunctionName,
			Arguments: []authtx.Argument{authtx.PureBytes(id), authtx.ObjectRef(hexutils.EncodeHex(id[:32]))},
		})
	}
	b, _ := tx.Bytes()
	return b
}

