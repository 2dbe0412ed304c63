package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// IPFSGateway reads and writes blobs through the HTTP API of an IPFS node. Blob IDs are CIDs.
type IPFSGateway struct {
	url string
	sh  *shell.Shell
}

func NewIPFSGateway(url string, client *http.Client) *IPFSGateway {
	if client == nil {
		client = http.DefaultClient
	}

	return &IPFSGateway{
		url: url,
		sh:  shell.NewShellWithClient(url, client),
	}
}

func (g *IPFSGateway) Name() string {
	return "ipfs:" + g.url
}

func (g *IPFSGateway) Fetch(ctx context.Context, blobID string) ([]byte, error) {
	resp, err := g.sh.Request("cat", blobID).Send(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(errorcode.ErrorGatewayTimeout, "从 %v 下载 %v 超时", g.Name(), blobID)
		}
		return nil, errors.Wrapf(err, "无法从 %v 下载 %v", g.Name(), blobID)
	}
	defer resp.Close()

	if resp.Error != nil {
		if strings.Contains(resp.Error.Message, "not found") {
			return nil, errors.Wrapf(errorcode.ErrorNotFound, "%v 上不存在 %v", g.Name(), blobID)
		}
		return nil, errors.Wrapf(resp.Error, "无法从 %v 下载 %v", g.Name(), blobID)
	}

	data, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "无法读取 %v 的内容", blobID)
	}

	return data, nil
}

// Store adds data to the node. epochs does not apply to IPFS and is ignored.
func (g *IPFSGateway) Store(ctx context.Context, data []byte, epochs int) (string, error) {
	cid, err := g.sh.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", errors.Wrapf(err, "无法上传到 %v", g.Name())
	}

	return cid, nil
}
