package bcao

import "context"

// IChainBCAO 为访问问卷所在链的接口
type IChainBCAO interface {
	// GetObject 读取一个对象。对象不存在时返回 errorcode.ErrorNotFound。
	GetObject(ctx context.Context, objectID string) (*ObjectData, error)
	// GetDynamicFields 列出对象的全部动态字段。
	GetDynamicFields(ctx context.Context, parentID string) ([]*DynamicFieldInfo, error)
	// GetOwnedObjects 列出某地址持有的某类型的全部对象。
	GetOwnedObjects(ctx context.Context, owner string, structType string) ([]*ObjectData, error)
	// QueryEvents 按类型查询事件，最多返回 limit 条（limit 不大于 0 时不限）。
	QueryEvents(ctx context.Context, eventType string, limit int) ([]*EventData, error)
	// ExecuteTransaction 提交已签名的交易。
	ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*TransactionExecutionInfo, error)
	// DryRunTransaction 模拟执行交易，不提交上链。
	DryRunTransaction(ctx context.Context, txBytes []byte) (*TransactionExecutionInfo, error)
}
