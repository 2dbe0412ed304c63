package suibcao

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/blockchain/chaincodectx"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
)

const pageSize = 50

type ChainBCAOSuiImpl struct {
	ctx    *chaincodectx.SuiChainCtx
	client *rpc.Client
}

func NewChainBCAOSuiImpl(ctx *chaincodectx.SuiChainCtx) (*ChainBCAOSuiImpl, error) {
	timeout := ctx.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client, err := rpc.DialHTTPWithClient(ctx.RPCURL, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "无法连接链节点 '%v'", ctx.RPCURL)
	}

	return &ChainBCAOSuiImpl{
		ctx:    ctx,
		client: client,
	}, nil
}

func (o *ChainBCAOSuiImpl) Close() {
	o.client.Close()
}

func (o *ChainBCAOSuiImpl) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	defer timingutils.GetDeferrableTimingLogger("链上调用 " + method)()

	if err := o.client.CallContext(ctx, result, method, args...); err != nil {
		return bcao.GetClassifiedError(method, err)
	}

	return nil
}

func (o *ChainBCAOSuiImpl) GetObject(ctx context.Context, objectID string) (*bcao.ObjectData, error) {
	var resp objectResponse
	if err := o.call(ctx, &resp, "sui_getObject", objectID, objectDataOptions); err != nil {
		return nil, err
	}

	obj, err := convertObject(&resp)
	if err != nil {
		if errors.Cause(err) == errorcode.ErrorNotFound {
			return nil, errorcode.ErrorNotFound
		}
		return nil, errors.Wrapf(err, "无法读取对象 %v", objectID)
	}

	return obj, nil
}

func (o *ChainBCAOSuiImpl) GetDynamicFields(ctx context.Context, parentID string) ([]*bcao.DynamicFieldInfo, error) {
	var fields []*bcao.DynamicFieldInfo
	var cursor interface{}
	for {
		var page dynamicFieldPage
		if err := o.call(ctx, &page, "suix_getDynamicFields", parentID, cursor, pageSize); err != nil {
			return nil, err
		}

		for _, f := range page.Data {
			fields = append(fields, &bcao.DynamicFieldInfo{
				Name:       f.Name.Value,
				NameType:   f.Name.Type,
				ObjectID:   f.ObjectID,
				ObjectType: f.ObjectType,
			})
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	return fields, nil
}

func (o *ChainBCAOSuiImpl) GetOwnedObjects(ctx context.Context, owner string, structType string) ([]*bcao.ObjectData, error) {
	query := map[string]interface{}{
		"filter":  map[string]interface{}{"StructType": structType},
		"options": objectDataOptions,
	}

	var objects []*bcao.ObjectData
	var cursor interface{}
	for {
		var page ownedObjectPage
		if err := o.call(ctx, &page, "suix_getOwnedObjects", owner, query, cursor, pageSize); err != nil {
			return nil, err
		}

		for i := range page.Data {
			obj, err := convertObject(&page.Data[i])
			if err != nil {
				log.Debugf("跳过无法解析的对象: %v", err)
				continue
			}
			objects = append(objects, obj)
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	return objects, nil
}

func (o *ChainBCAOSuiImpl) QueryEvents(ctx context.Context, eventType string, limit int) ([]*bcao.EventData, error) {
	query := map[string]interface{}{"MoveEventType": eventType}

	var events []*bcao.EventData
	var cursor interface{}
	for {
		var page eventPage
		if err := o.call(ctx, &page, "suix_queryEvents", query, cursor, pageSize, false); err != nil {
			return nil, err
		}

		for i := range page.Data {
			events = append(events, convertEvent(&page.Data[i]))
			if limit > 0 && len(events) >= limit {
				return events, nil
			}
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	return events, nil
}

func (o *ChainBCAOSuiImpl) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*bcao.TransactionExecutionInfo, error) {
	options := map[string]bool{"showEffects": true, "showEvents": true}

	var resp transactionBlockResponse
	err := o.call(ctx, &resp, "sui_executeTransactionBlock",
		base64.StdEncoding.EncodeToString(txBytes), signatures, options, "WaitForLocalExecution")
	if err != nil {
		return nil, err
	}

	return convertTransactionBlock(&resp), nil
}

func (o *ChainBCAOSuiImpl) DryRunTransaction(ctx context.Context, txBytes []byte) (*bcao.TransactionExecutionInfo, error) {
	var resp transactionBlockResponse
	if err := o.call(ctx, &resp, "sui_dryRunTransactionBlock", base64.StdEncoding.EncodeToString(txBytes)); err != nil {
		return nil, err
	}

	return convertTransactionBlock(&resp), nil
}
