package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// AggregatorGateway reads blobs from an HTTP aggregator and writes them through a publisher.
type AggregatorGateway struct {
	AggregatorURL string
	PublisherURL  string
	client        *http.Client
}

func NewAggregatorGateway(aggregatorURL, publisherURL string, client *http.Client) *AggregatorGateway {
	if client == nil {
		client = http.DefaultClient
	}

	return &AggregatorGateway{
		AggregatorURL: strings.TrimRight(aggregatorURL, "/"),
		PublisherURL:  strings.TrimRight(publisherURL, "/"),
		client:        client,
	}
}

func (g *AggregatorGateway) Name() string {
	return g.AggregatorURL
}

func (g *AggregatorGateway) Fetch(ctx context.Context, blobID string) ([]byte, error) {
	endpoint := g.AggregatorURL + "/v1/blobs/" + url.PathEscape(blobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "无法构造下载请求")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(errorcode.ErrorGatewayTimeout, "从 %v 下载 %v 超时", g.Name(), blobID)
		}
		return nil, errors.Wrapf(err, "无法从 %v 下载 %v", g.Name(), blobID)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "%v 上不存在 %v", g.Name(), blobID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("从 %v 下载 %v 失败，状态码 %v", g.Name(), blobID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "无法读取 %v 的内容", blobID)
	}

	return data, nil
}

type storeResponse struct {
	NewlyCreated *struct {
		BlobObject struct {
			BlobID string `json:"blobId"`
		} `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID string `json:"blobId"`
	} `json:"alreadyCertified"`
}

func (g *AggregatorGateway) Store(ctx context.Context, data []byte, epochs int) (string, error) {
	if g.PublisherURL == "" {
		return "", errors.Wrapf(errorcode.ErrorNotImplemented, "网关 %v 未配置发布地址", g.Name())
	}
	if epochs < 1 {
		epochs = 1
	}

	endpoint := g.PublisherURL + "/v1/blobs?epochs=" + strconv.Itoa(epochs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "无法构造上传请求")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "无法上传到 %v", g.PublisherURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "无法读取上传结果")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("上传到 %v 失败，状态码 %v: %v", g.PublisherURL, resp.StatusCode, string(body))
	}

	var stored storeResponse
	if err = json.Unmarshal(body, &stored); err != nil {
		return "", errors.Wrap(err, "无法解析上传结果")
	}
	switch {
	case stored.NewlyCreated != nil:
		return stored.NewlyCreated.BlobObject.BlobID, nil
	case stored.AlreadyCertified != nil:
		return stored.AlreadyCertified.BlobID, nil
	default:
		return "", fmt.Errorf("上传结果中没有 blob ID: %v", string(body))
	}
}
