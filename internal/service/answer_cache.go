package service

import (
	"sort"
	"sync"

	"github.com/bluele/gcache"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

// AnswerCache 在内存中保存解密后的答卷，以 blob ID 为键。同一 blob 重复解密时后写入的结果覆盖先前的结果。
type AnswerCache struct {
	answers gcache.Cache

	mu      sync.Mutex
	blobIDs map[string]struct{}
}

// NewAnswerCache 创建一个答卷缓存。size 大于 0 时按 LRU 淘汰，否则不限容量。
func NewAnswerCache(size int) *AnswerCache {
	c := &AnswerCache{blobIDs: map[string]struct{}{}}

	builder := gcache.New(size)
	if size > 0 {
		builder = builder.LRU()
	}
	c.answers = builder.EvictedFunc(c.onEvicted).Build()

	return c
}

func (c *AnswerCache) onEvicted(key, _ interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.blobIDs, key.(string))
}

// Put 写入或覆盖一份答卷。
func (c *AnswerCache) Put(answer *survey.DecryptedAnswer) {
	_ = c.answers.Set(answer.BlobID, answer)

	c.mu.Lock()
	c.blobIDs[answer.BlobID] = struct{}{}
	c.mu.Unlock()
}

// Get 读取一份答卷。不存在时返回 `errorcode.ErrorNotFound`。
func (c *AnswerCache) Get(blobID string) (*survey.DecryptedAnswer, error) {
	value, err := c.answers.Get(blobID)
	if err != nil {
		return nil, errorcode.ErrorNotFound
	}

	return value.(*survey.DecryptedAnswer), nil
}

// List 列出全部答卷，按提交时间排序，时间相同时按 blob ID 排序。surveyID 非空时只列出该问卷的答卷。
func (c *AnswerCache) List(surveyID string) []*survey.DecryptedAnswer {
	c.mu.Lock()
	blobIDs := make([]string, 0, len(c.blobIDs))
	for blobID := range c.blobIDs {
		blobIDs = append(blobIDs, blobID)
	}
	c.mu.Unlock()

	answers := make([]*survey.DecryptedAnswer, 0, len(blobIDs))
	for _, blobID := range blobIDs {
		answer, err := c.Get(blobID)
		if err != nil {
			continue
		}
		if surveyID != "" && !hexutils.SameObjectID(answer.SurveyID, surveyID) {
			continue
		}
		answers = append(answers, answer)
	}

	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].Timestamp.Equal(answers[j].Timestamp) {
			return answers[i].Timestamp.Before(answers[j].Timestamp)
		}
		return answers[i].BlobID < answers[j].BlobID
	})

	return answers
}

// Len 返回缓存中的答卷数。
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.blobIDs)
}

// Clear 清空缓存。
func (c *AnswerCache) Clear() {
	c.answers.Purge()

	c.mu.Lock()
	c.blobIDs = map[string]struct{}{}
	c.mu.Unlock()
}
