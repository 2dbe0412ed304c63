package authtx

import (
	"encoding/json"
	"fmt"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

const (
	// TransactionKindProgrammable 为授权交易的交易类别
	TransactionKindProgrammable = "ProgrammableTransaction"
	// ArgumentKindPure 表示纯值参数（十六进制字节）
	ArgumentKindPure = "pure"
	// ArgumentKindObject 表示对象引用参数
	ArgumentKindObject = "object"
	// ClockObjectID 为共享时钟对象的 ID
	ClockObjectID = "0x6"
	// ApproveFunctionName 为授权检查入口函数名
	ApproveFunctionName = "seal_approve"
)

// Argument 为 Move 调用的一个参数
type Argument struct {
	Kind  string `json:"kind"`  // 参数类别
	Value string `json:"value"` // 纯值时为 0x 开头的十六进制字节，对象时为对象 ID
}

// PureBytes 构造一个纯值字节参数。
func PureBytes(b []byte) Argument {
	return Argument{Kind: ArgumentKindPure, Value: hexutils.EncodeHex(b)}
}

// ObjectRef 构造一个对象引用参数。
func ObjectRef(objectID string) Argument {
	return Argument{Kind: ArgumentKindObject, Value: objectID}
}

// MoveCall 为可编程交易中的一条 Move 调用
type MoveCall struct {
	Package   string     `json:"package"`   // 包 ID
	Module    string     `json:"module"`    // 模块名
	Function  string     `json:"function"`  // 函数名
	Arguments []Argument `json:"arguments"` // 参数列表
}

// Target 返回 `package::module::function` 形式的调用目标。
func (c *MoveCall) Target() string {
	return fmt.Sprintf("%v::%v::%v", c.Package, c.Module, c.Function)
}

// KeyID 返回授权调用的第一个参数，即被请求的密钥 ID。
func (c *MoveCall) KeyID() ([]byte, error) {
	if len(c.Arguments) == 0 || c.Arguments[0].Kind != ArgumentKindPure {
		return nil, fmt.Errorf("调用 %v 缺少密钥 ID 参数", c.Target())
	}

	return hexutils.DecodeHex(c.Arguments[0].Value)
}

// ObjectArgument 返回第 i 个对象参数的对象 ID。
func (c *MoveCall) ObjectArgument(i int) (string, error) {
	if i >= len(c.Arguments) || c.Arguments[i].Kind != ArgumentKindObject {
		return "", fmt.Errorf("调用 %v 的第 %v 个参数不是对象引用", c.Target(), i)
	}

	return c.Arguments[i].Value, nil
}

// Transaction 为只含授权调用的可编程交易。它仅用于在密钥服务器上进行模拟执行，不会被提交上链。
type Transaction struct {
	Kind     string     `json:"kind"`             // 交易类别
	Sender   string     `json:"sender,omitempty"` // 发送者地址
	Commands []MoveCall `json:"commands"`         // 调用列表
}

// Bytes 返回交易的规范化字节（RFC 8785 JSON）。相同的交易总是得到相同的字节。
func (t *Transaction) Bytes() ([]byte, error) {
	rawJSON, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化授权交易")
	}

	canonical, err := jsoncanonicalizer.Transform(rawJSON)
	if err != nil {
		return nil, errors.Wrap(err, "无法规范化授权交易")
	}

	return canonical, nil
}

// ParseTransaction 从规范化字节中解析出授权交易。
func ParseTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, errors.Wrap(err, "无法解析授权交易")
	}
	if tx.Kind != TransactionKindProgrammable {
		return nil, fmt.Errorf("不支持的交易类别 '%v'", tx.Kind)
	}

	return &tx, nil
}
