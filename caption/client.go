package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint 是开发代理上的字幕接口。
const DefaultEndpoint = "http://localhost:3001/api/caption"

const maxResponseBytes = 1 << 20

// ErrNoURL 表示服务声称成功但没有返回图片地址。
var ErrNoURL = errors.New("字幕服务未返回图片地址")

// Box 是一个字幕槽位的文本。
type Box struct {
	Text string `json:"text"`
}

// Request 是发往字幕服务的请求体。
type Request struct {
	TemplateID string `json:"template_id"`
	Boxes      []Box  `json:"boxes"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
}

// NewRequest 按顺序把字幕转成槽位。
func NewRequest(templateID string, captions []string) Request {
	boxes := make([]Box, len(captions))
	for i, c := range captions {
		boxes[i] = Box{Text: c}
	}
	return Request{TemplateID: templateID, Boxes: boxes}
}

// Data 是服务生成的远程图片。
type Data struct {
	URL     string `json:"url"`
	PageURL string `json:"page_url"`
}

type response struct {
	Success bool   `json:"success"`
	Data    *Data  `json:"data"`
	Error   string `json:"error"`
}

// ServiceError 携带字幕服务返回的错误信息。
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("字幕服务失败（状态 %d）", e.Status)
	}
	return fmt.Sprintf("字幕服务失败（状态 %d）: %s", e.Status, e.Message)
}

// Options configures the caption client.
type Options struct {
	Endpoint string
	Client   *http.Client
	// Username/Password 为空时由代理使用自己的账号。
	Username string
	Password string
}

// Client 调用远程字幕服务，是本地合成失败后的兜底路径。
type Client struct {
	endpoint string
	client   *http.Client
	username string
	password string
}

// NewClient creates a caption client.
func NewClient(opts Options) *Client {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, client: client, username: opts.Username, password: opts.Password}
}

// Endpoint 返回请求地址。
func (c *Client) Endpoint() string { return c.endpoint }

// Caption 请求服务生成带字幕的图片。
func (c *Client) Caption(ctx context.Context, req Request) (*Data, error) {
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, errors.New("caption: 缺少 template_id")
	}
	if req.Boxes == nil {
		req.Boxes = []Box{}
	}
	if req.Username == "" {
		req.Username, req.Password = c.username, c.password
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("caption: 编码请求失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("caption: 构造请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("caption: 请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("caption: 读取响应失败: %w", err)
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("caption: 响应不是有效 JSON（状态 %d）: %w", resp.StatusCode, err)
	}
	if !out.Success {
		return nil, &ServiceError{Status: resp.StatusCode, Message: out.Error}
	}
	if out.Data == nil || strings.TrimSpace(out.Data.URL) == "" {
		return nil, ErrNoURL
	}
	return out.Data, nil
}
