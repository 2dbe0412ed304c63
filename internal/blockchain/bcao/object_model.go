package bcao

// ObjectData 为从链上读出的对象
type ObjectData struct {
	ObjectID string                 `json:"objectId"` // 对象 ID
	Version  string                 `json:"version"`  // 对象版本
	Type     string                 `json:"type"`     // Move 类型
	Owner    string                 `json:"owner"`    // 持有者地址，共享或不可变对象时为空
	Shared   bool                   `json:"shared"`   // 是否为共享对象
	Fields   map[string]interface{} `json:"fields"`   // Move 结构体的字段
}

// DynamicFieldInfo 为对象下的一个动态字段
type DynamicFieldInfo struct {
	Name       interface{} `json:"name"`       // 字段名的值
	NameType   string      `json:"nameType"`   // 字段名的类型
	ObjectID   string      `json:"objectId"`   // 字段对象 ID
	ObjectType string      `json:"objectType"` // 字段值的类型
}

// EventData 为链上事件
type EventData struct {
	TxDigest    string                 `json:"txDigest"`    // 产生事件的交易摘要
	EventSeq    string                 `json:"eventSeq"`    // 事件序号
	Type        string                 `json:"type"`        // 事件类型
	Sender      string                 `json:"sender"`      // 交易发送者
	ParsedJSON  map[string]interface{} `json:"parsedJson"`  // 事件内容
	TimestampMs string                 `json:"timestampMs"` // 事件时间戳（毫秒）
}
