package suibcao

import (
	"encoding/json"
	"fmt"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"github.com/pkg/errors"
)

var objectDataOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

// parseOwner understands `{"AddressOwner": ..}`, `{"ObjectOwner": ..}`, `{"Shared": {..}}` and `"Immutable"`.
func parseOwner(raw json.RawMessage) (owner string, shared bool) {
	if len(raw) == 0 {
		return "", false
	}

	var ownerMap map[string]interface{}
	if err := json.Unmarshal(raw, &ownerMap); err != nil {
		return "", false
	}
	if address, ok := ownerMap["AddressOwner"].(string); ok {
		return address, false
	}
	if address, ok := ownerMap["ObjectOwner"].(string); ok {
		return address, false
	}
	if _, ok := ownerMap["Shared"]; ok {
		return "", true
	}

	return "", false
}

func convertObject(resp *objectResponse) (*bcao.ObjectData, error) {
	if resp.Error != nil {
		if code, _ := resp.Error["code"].(string); code == "notExists" || code == "deleted" {
			return nil, errorcode.ErrorNotFound
		}
		return nil, fmt.Errorf("无法读取对象: %v", resp.Error)
	}
	if resp.Data == nil {
		return nil, errorcode.ErrorNotFound
	}

	owner, shared := parseOwner(resp.Data.Owner)
	obj := &bcao.ObjectData{
		ObjectID: resp.Data.ObjectID,
		Version:  resp.Data.Version,
		Type:     resp.Data.Type,
		Owner:    owner,
		Shared:   shared,
	}
	if resp.Data.Content != nil {
		if obj.Type == "" {
			obj.Type = resp.Data.Content.Type
		}
		obj.Fields = resp.Data.Content.Fields
	}
	if obj.Fields == nil {
		return nil, errors.Errorf("对象 %v 不是 Move 对象或未返回内容", obj.ObjectID)
	}

	return obj, nil
}

func convertEvent(raw *eventRaw) *bcao.EventData {
	return &bcao.EventData{
		TxDigest:    raw.ID.TxDigest,
		EventSeq:    raw.ID.EventSeq,
		Type:        raw.Type,
		Sender:      raw.Sender,
		ParsedJSON:  raw.ParsedJSON,
		TimestampMs: raw.TimestampMs,
	}
}

func convertTransactionBlock(resp *transactionBlockResponse) *bcao.TransactionExecutionInfo {
	info := &bcao.TransactionExecutionInfo{Digest: resp.Digest}
	if resp.Effects != nil {
		info.Status = resp.Effects.Status.Status
		info.Error = resp.Effects.Status.Error
	}
	for i := range resp.Events {
		info.Events = append(info.Events, convertEvent(&resp.Events[i]))
	}

	return info
}
