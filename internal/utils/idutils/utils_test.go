package idutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSnowflakeIdIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := GenerateSnowflakeId()
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}
		assert.False(t, seen[id])
		seen[id] = true
	}
}
