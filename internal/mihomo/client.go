package mihomo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

/**
 * Options 客户端参数
 * @property {time.Duration} timeout - 单次请求超时
 * @property {int} reconnectAttempts - 订阅断线后的最大重连次数
 * @property {time.Duration} reconnectMaxDelay - 重连退避的上限
 */
type Options struct {
	Timeout           time.Duration
	ReconnectAttempts int
	ReconnectMaxDelay time.Duration
}

func (o *Options) correct() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 6
	}
	if o.ReconnectMaxDelay <= 0 {
		o.ReconnectMaxDelay = 30 * time.Second
	}
}

/**
 * Client mihomo外部控制器的客户端
 * @description
 * - 普通请求带超时；订阅走无全局超时的流式客户端，由context控制生命周期
 * - secret以Bearer方式带在每个请求和流握手上
 */
type Client struct {
	baseURL string
	secret  string
	opts    Options

	http       *http.Client
	streamHTTP *http.Client
}

func NewClient(baseURL, secret string, opts Options) *Client {
	opts.correct()
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		opts:       opts,
		http:       &http.Client{Timeout: opts.Timeout},
		streamHTTP: &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errs.WrapKind(err, errs.KindIO, "encode request body")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errs.WrapKind(err, errs.KindNetwork, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}
	return req, nil
}

/**
 * do 发送请求并解码响应
 * @description
 * - 不可达/超时 → Network；401/403 → Auth；404 → NotFound
 * - out为nil时丢弃响应体
 */
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	logger.Debugf("Control plane %s %s", method, path)

	rsp, err := c.http.Do(req)
	if err != nil {
		return errs.WrapKind(err, errs.KindNetwork, "%s %s", method, path)
	}
	defer rsp.Body.Close()

	if err := statusError(rsp, method, path); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, rsp.Body)
		return nil
	}
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return errs.WrapKind(err, errs.KindNetwork, "read response of %s %s", method, path)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.WrapKind(err, errs.KindNetwork, "decode response of %s %s", method, path)
	}
	return nil
}

func statusError(rsp *http.Response, method, path string) error {
	switch {
	case rsp.StatusCode >= 200 && rsp.StatusCode < 300:
		return nil
	case rsp.StatusCode == http.StatusUnauthorized || rsp.StatusCode == http.StatusForbidden:
		return errs.Auth("control plane rejected the secret (HTTP %d)", rsp.StatusCode)
	case rsp.StatusCode == http.StatusNotFound:
		return errs.NotFound("%s %s returned HTTP 404", method, path)
	default:
		msg, _ := io.ReadAll(io.LimitReader(rsp.Body, 512))
		return errs.Network("%s %s returned HTTP %d: %s", method, path, rsp.StatusCode, string(msg))
	}
}

// Version 获取内核版本
func (c *Client) Version(ctx context.Context) (Version, error) {
	var v Version
	err := c.do(ctx, http.MethodGet, "/version", nil, &v)
	return v, err
}

// Healthy 健康探测，/version可达且鉴权通过即健康
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// Proxies 获取全部代理节点(不含代理组)
func (c *Client) Proxies(ctx context.Context) (map[string]Proxy, error) {
	var rsp proxiesResponse
	if err := c.do(ctx, http.MethodGet, "/proxies", nil, &rsp); err != nil {
		return nil, err
	}
	nodes := make(map[string]Proxy)
	for name, p := range rsp.Proxies {
		if !p.IsGroup() {
			nodes[name] = p
		}
	}
	return nodes, nil
}

// ProxyGroups 获取全部代理组
func (c *Client) ProxyGroups(ctx context.Context) (map[string]Proxy, error) {
	var rsp proxiesResponse
	if err := c.do(ctx, http.MethodGet, "/proxies", nil, &rsp); err != nil {
		return nil, err
	}
	groups := make(map[string]Proxy)
	for name, p := range rsp.Proxies {
		if p.IsGroup() {
			groups[name] = p
		}
	}
	return groups, nil
}

// SwitchProxy 切换代理组的选中节点
func (c *Client) SwitchProxy(ctx context.Context, group, proxy string) error {
	body := map[string]string{"name": proxy}
	return c.do(ctx, http.MethodPut, "/proxies/"+url.PathEscape(group), body, nil)
}

/**
 * TestDelay 测试单个代理的延迟
 * @param {string} proxy - 代理名
 * @param {string} testURL - 测速地址，空串用默认值
 * @param {int} timeoutMs - 测速超时毫秒数，0用默认值
 */
func (c *Client) TestDelay(ctx context.Context, proxy, testURL string, timeoutMs int) (DelayResult, error) {
	if testURL == "" {
		testURL = "https://www.gstatic.com/generate_204"
	}
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	path := fmt.Sprintf("/proxies/%s/delay?url=%s&timeout=%d",
		url.PathEscape(proxy), url.QueryEscape(testURL), timeoutMs)
	var result DelayResult
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

// Connections 获取连接快照
func (c *Client) Connections(ctx context.Context) (ConnectionsSnapshot, error) {
	var snap ConnectionsSnapshot
	err := c.do(ctx, http.MethodGet, "/connections", nil, &snap)
	return snap, err
}

// CloseConnection 关闭指定连接
func (c *Client) CloseConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/connections/"+url.PathEscape(id), nil, nil)
}

// CloseAllConnections 关闭全部连接
func (c *Client) CloseAllConnections(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/connections", nil, nil)
}

// ReloadConfig 让内核重新加载配置文件
func (c *Client) ReloadConfig(ctx context.Context, configPath string) error {
	body := map[string]string{"path": configPath}
	return c.do(ctx, http.MethodPut, "/configs?force=true", body, nil)
}

/**
 * MemoryOnce 点时内存读数
 * @description
 * - /memory是流式接口，这里打开流取第一个采样后立即关闭
 */
func (c *Client) MemoryOnce(ctx context.Context) (Memory, error) {
	sub, err := c.SubscribeMemory(ctx)
	if err != nil {
		return Memory{}, err
	}
	defer sub.Close()

	select {
	case m, ok := <-sub.C:
		if !ok {
			return Memory{}, sub.Err()
		}
		return m, nil
	case <-ctx.Done():
		return Memory{}, errs.WrapKind(ctx.Err(), errs.KindNetwork, "memory read cancelled")
	}
}
