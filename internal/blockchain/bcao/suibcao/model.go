package suibcao

import "encoding/json"

type objectResponse struct {
	Data  *objectRaw             `json:"data"`
	Error map[string]interface{} `json:"error"`
}

type objectRaw struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *struct {
		DataType string                 `json:"dataType"`
		Type     string                 `json:"type"`
		Fields   map[string]interface{} `json:"fields"`
	} `json:"content"`
}

type dynamicFieldPage struct {
	Data []struct {
		Name struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"name"`
		ObjectID   string `json:"objectId"`
		ObjectType string `json:"objectType"`
	} `json:"data"`
	NextCursor  interface{} `json:"nextCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}

type ownedObjectPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  interface{}      `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type eventRaw struct {
	ID struct {
		TxDigest string `json:"txDigest"`
		EventSeq string `json:"eventSeq"`
	} `json:"id"`
	Type        string                 `json:"type"`
	Sender      string                 `json:"sender"`
	ParsedJSON  map[string]interface{} `json:"parsedJson"`
	TimestampMs string                 `json:"timestampMs"`
}

type eventPage struct {
	Data        []eventRaw  `json:"data"`
	NextCursor  interface{} `json:"nextCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}

type transactionBlockResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	Events []eventRaw `json:"events"`
}
