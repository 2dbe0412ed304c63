package controller

import "time"

// SessionInfo 包含会话密钥就绪后返回给客户端的信息
type SessionInfo struct {
	Address      string    `json:"address"`
	PackageID    string    `json:"packageId"`
	TTLMin       int       `json:"ttlMin"`
	CreationTime time.Time `json:"creationTime"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AnswerList 为答卷缓存的列表响应
type AnswerList struct {
	Total   int         `json:"total"`
	Answers interface{} `json:"answers"`
}
