package idutils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

var (
	sfNode     *snowflake.Node
	sfNodeErr  error
	sfNodeOnce sync.Once
)

// GenerateSnowflakeId 生成一个雪花 ID，用于标识一次解密运行等本地事件。
func GenerateSnowflakeId() (string, error) {
	sfNodeOnce.Do(func() {
		sfNode, sfNodeErr = snowflake.NewNode(1)
	})
	if sfNodeErr != nil {
		return "", errors.Wrap(sfNodeErr, "无法生成 ID")
	}

	return sfNode.Generate().String(), nil
}
