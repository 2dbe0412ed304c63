package suibcao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/internal/blockchain/chaincodectx"
	"gitee.com/czyczk/datawave/pkg/errorcode"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeNode struct {
	handlers map[string]func(params []json.RawMessage) interface{}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if handler, ok := n.handlers[req.Method]; ok {
		resp["result"] = handler(req.Params)
	} else {
		resp["error"] = map[string]interface{}{"code": -32601, "message": "Method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestBCAO(t *testing.T, node *fakeNode) *ChainBCAOSuiImpl {
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	o, err := NewChainBCAOSuiImpl(&chaincodectx.SuiChainCtx{RPCURL: server.URL, PackageID: "0xpkg"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(o.Close)
	return o
}

func TestGetObject(t *testing.T) {
	node := &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{
		"sui_getObject": func(params []json.RawMessage) interface{} {
			var id string
			_ = json.Unmarshal(params[0], &id)
			if id != "0x11" {
				return map[string]interface{}{"error": map[string]interface{}{"code": "notExists", "object_id": id}}
			}
			return map[string]interface{}{"data": map[string]interface{}{
				"objectId": "0x11",
				"version":  "7",
				"type":     "0xpkg::survey::Survey",
				"owner":    map[string]interface{}{"Shared": map[string]interface{}{"initial_shared_version": 3}},
				"content": map[string]interface{}{
					"dataType": "moveObject",
					"type":     "0xpkg::survey::Survey",
					"fields":   map[string]interface{}{"title": "T"},
				},
			}}
		},
	}}
	o := newTestBCAO(t, node)

	obj, err := o.GetObject(context.Background(), "0x11")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, obj.Shared)
	assert.Equal(t, "T", obj.Fields["title"])

	_, err = o.GetObject(context.Background(), "0x12")
	assert.Equal(t, errorcode.ErrorNotFound, err)
}

func TestGetDynamicFieldsPaginates(t *testing.T) {
	calls := 0
	node := &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{
		"suix_getDynamicFields": func(params []json.RawMessage) interface{} {
			calls++
			if string(params[1]) == "null" {
				return map[string]interface{}{
					"data":        []interface{}{map[string]interface{}{"name": map[string]interface{}{"type": "address", "value": "0xa1"}, "objectId": "0xd1", "objectType": "Answer"}},
					"nextCursor":  "0xd1",
					"hasNextPage": true,
				}
			}
			return map[string]interface{}{
				"data":        []interface{}{map[string]interface{}{"name": map[string]interface{}{"type": "address", "value": "0xa2"}, "objectId": "0xd2", "objectType": "Answer"}},
				"nextCursor":  nil,
				"hasNextPage": false,
			}
		},
	}}
	o := newTestBCAO(t, node)

	fields, err := o.GetDynamicFields(context.Background(), "0x11")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, fields, 2)
	assert.Equal(t, "0xd2", fields[1].ObjectID)
}

func TestGetOwnedObjects(t *testing.T) {
	node := &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{
		"suix_getOwnedObjects": func(params []json.RawMessage) interface{} {
			return map[string]interface{}{
				"data": []interface{}{map[string]interface{}{"data": map[string]interface{}{
					"objectId": "0x5b",
					"owner":    map[string]interface{}{"AddressOwner": "0xa1"},
					"content":  map[string]interface{}{"type": "0xpkg::subscription::Subscription", "fields": map[string]interface{}{"service_id": "0x5e"}},
				}}},
				"hasNextPage": false,
			}
		},
	}}
	o := newTestBCAO(t, node)

	objects, err := o.GetOwnedObjects(context.Background(), "0xa1", "0xpkg::subscription::Subscription")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, objects, 1)
	assert.Equal(t, "0xa1", objects[0].Owner)
	assert.Equal(t, "0xpkg::subscription::Subscription", objects[0].Type)
}

func TestQueryEventsRespectsLimit(t *testing.T) {
	node := &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{
		"suix_queryEvents": func(params []json.RawMessage) interface{} {
			return map[string]interface{}{
				"data": []interface{}{
					map[string]interface{}{"id": map[string]interface{}{"txDigest": "d1", "eventSeq": "0"}, "type": "E", "parsedJson": map[string]interface{}{"k": 1}},
					map[string]interface{}{"id": map[string]interface{}{"txDigest": "d2", "eventSeq": "0"}, "type": "E"},
				},
				"nextCursor":  map[string]interface{}{"txDigest": "d2", "eventSeq": "0"},
				"hasNextPage": true,
			}
		},
	}}
	o := newTestBCAO(t, node)

	events, err := o.QueryEvents(context.Background(), "E", 1)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, events, 1)
	assert.Equal(t, "d1", events[0].TxDigest)
}

func TestExecuteAndDryRun(t *testing.T) {
	node := &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{
		"sui_executeTransactionBlock": func(params []json.RawMessage) interface{} {
			return map[string]interface{}{"digest": "dg", "effects": map[string]interface{}{"status": map[string]interface{}{"status": "success"}}}
		},
		"sui_dryRunTransactionBlock": func(params []json.RawMessage) interface{} {
			return map[string]interface{}{"effects": map[string]interface{}{"status": map[string]interface{}{"status": "failure", "error": "MoveAbort"}}}
		},
	}}
	o := newTestBCAO(t, node)

	info, err := o.ExecuteTransaction(context.Background(), []byte("tx"), []string{"sig"})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, info.IsSuccess())
	assert.Equal(t, "dg", info.Digest)

	info, err = o.DryRunTransaction(context.Background(), []byte("tx"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.False(t, info.IsSuccess())
	assert.Equal(t, "MoveAbort", info.Error)
}

func TestUnknownMethodIsClassified(t *testing.T) {
	o := newTestBCAO(t, &fakeNode{handlers: map[string]func([]json.RawMessage) interface{}{}})

	_, err := o.GetObject(context.Background(), "0x11")
	assert.Equal(t, errorcode.ErrorNotImplemented, err)
}
