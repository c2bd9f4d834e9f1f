package mihomo

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

// 流量/内存采样通道的缓冲深度，写满时丢最旧的采样
const sampleBuffer = 16

/**
 * stream 一条流式订阅的底层状态
 * @description
 * - 每个订阅一个读协程，读取分块传输的逐行JSON
 * - 断线后指数退避重连，收到数据即视为健康并清零退避
 * - 重连次数耗尽后关闭数据通道并落下Network类终态错误
 */
type stream struct {
	client *Client
	path   string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	termErr error
}

func (c *Client) newStream(ctx context.Context, path string) *stream {
	sctx, cancel := context.WithCancel(ctx)
	return &stream{
		client: c,
		path:   path,
		ctx:    sctx,
		cancel: cancel,
	}
}

// open 建立一次流连接，返回响应体供逐行读取
func (s *stream) open() (*http.Response, error) {
	req, err := s.client.newRequest(s.ctx, http.MethodGet, s.path, nil)
	if err != nil {
		return nil, err
	}
	rsp, err := s.client.streamHTTP.Do(req)
	if err != nil {
		return nil, errs.WrapKind(err, errs.KindNetwork, "open stream %s", s.path)
	}
	if err := statusError(rsp, http.MethodGet, s.path); err != nil {
		rsp.Body.Close()
		return nil, err
	}
	return rsp, nil
}

/**
 * run 订阅主循环，deliver返回false表示下游已关闭
 * @param {func([]byte) bool} deliver - 逐行回调，入参是一行JSON
 */
func (s *stream) run(deliver func(line []byte) bool, done func()) {
	defer done()
	defer s.cancel()

	attempts := 0
	delay := time.Second
	// 消耗一次重连配额并退避，配额耗尽时落下终态错误
	backoff := func(cause error) bool {
		attempts++
		if attempts > s.client.opts.ReconnectAttempts {
			s.fail(errs.WrapKind(cause, errs.KindNetwork,
				"stream %s unavailable after %d attempts", s.path, attempts-1))
			return false
		}
		logger.Warnf("Stream %s reconnecting (attempt %d/%d): %v",
			s.path, attempts, s.client.opts.ReconnectAttempts, cause)
		if !s.sleep(delay) {
			return false
		}
		delay *= 2
		if delay > s.client.opts.ReconnectMaxDelay {
			delay = s.client.opts.ReconnectMaxDelay
		}
		return true
	}

	for {
		rsp, err := s.open()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if !backoff(err) {
				return
			}
			continue
		}

		delivered := false
		scanner := bufio.NewScanner(rsp.Body)
		scanner.Buffer(make([]byte, 0, 4096), 1<<20)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			// 有数据流入即视为连接健康
			delivered = true
			attempts = 0
			delay = time.Second
			if !deliver(line) {
				rsp.Body.Close()
				return
			}
		}
		rsp.Body.Close()
		if s.ctx.Err() != nil {
			return
		}
		// 连上了但一个帧都没读到，与打不开连接同样计入重连配额
		if !delivered {
			if !backoff(errs.Network("stream %s closed before any data", s.path)) {
				return
			}
			continue
		}
		logger.Warnf("Stream %s disconnected, reconnecting", s.path)
	}
}

func (s *stream) sleep(d time.Duration) bool {
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (s *stream) fail(err error) {
	s.mu.Lock()
	s.termErr = err
	s.mu.Unlock()
	logger.Errorf("Stream %s terminated: %v", s.path, err)
}

func (s *stream) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.termErr
}

/**
 * LogSubscription 内核日志订阅
 * @description
 * - 日志不允许丢，C上的发送是阻塞的，消费慢会反压到连接上
 * - Close或外层context取消都会断开连接并最终关闭C
 */
type LogSubscription struct {
	C <-chan LogEntry

	s *stream
}

/**
 * SubscribeLogs 订阅内核日志流
 * @param {LogLevel} min - 最低级别，低于它的条目在客户端侧丢弃
 */
func (c *Client) SubscribeLogs(ctx context.Context, min LogLevel) (*LogSubscription, error) {
	path := "/logs"
	if min != "" {
		path += "?level=" + url.QueryEscape(string(min))
	}
	s := c.newStream(ctx, path)
	ch := make(chan LogEntry)
	sub := &LogSubscription{C: ch, s: s}

	go s.run(func(line []byte) bool {
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			logger.Debugf("Skipping malformed log line: %v", err)
			return true
		}
		if min != "" && !entry.Type.AtLeast(min) {
			return true
		}
		select {
		case ch <- entry:
			return true
		case <-s.ctx.Done():
			return false
		}
	}, func() { close(ch) })

	return sub, nil
}

// Close 断开日志订阅
func (l *LogSubscription) Close() { l.s.cancel() }

// Err 订阅的终态错误，正常关闭时为nil
func (l *LogSubscription) Err() error { return l.s.err() }

/**
 * TrafficSubscription 流量采样订阅
 * @description
 * - 采样是瞬时读数，过期即无价值，缓冲满时丢最旧的
 */
type TrafficSubscription struct {
	C <-chan Traffic

	s  *stream
	ch chan Traffic
}

// SubscribeTraffic 订阅每秒一次的流量采样
func (c *Client) SubscribeTraffic(ctx context.Context) (*TrafficSubscription, error) {
	s := c.newStream(ctx, "/traffic")
	ch := make(chan Traffic, sampleBuffer)
	sub := &TrafficSubscription{C: ch, s: s, ch: ch}

	go s.run(func(line []byte) bool {
		var t Traffic
		if err := json.Unmarshal(line, &t); err != nil {
			logger.Debugf("Skipping malformed traffic sample: %v", err)
			return true
		}
		pushSample(s.ctx, ch, t)
		return s.ctx.Err() == nil
	}, func() { close(ch) })

	return sub, nil
}

func (t *TrafficSubscription) Close()     { t.s.cancel() }
func (t *TrafficSubscription) Err() error { return t.s.err() }

/**
 * MemorySubscription 内存采样订阅，背压策略与流量一致
 */
type MemorySubscription struct {
	C <-chan Memory

	s  *stream
	ch chan Memory
}

// SubscribeMemory 订阅每秒一次的内存采样
func (c *Client) SubscribeMemory(ctx context.Context) (*MemorySubscription, error) {
	s := c.newStream(ctx, "/memory")
	ch := make(chan Memory, sampleBuffer)
	sub := &MemorySubscription{C: ch, s: s, ch: ch}

	go s.run(func(line []byte) bool {
		var m Memory
		if err := json.Unmarshal(line, &m); err != nil {
			logger.Debugf("Skipping malformed memory sample: %v", err)
			return true
		}
		pushSample(s.ctx, ch, m)
		return s.ctx.Err() == nil
	}, func() { close(ch) })

	return sub, nil
}

func (m *MemorySubscription) Close()     { m.s.cancel() }
func (m *MemorySubscription) Err() error { return m.s.err() }

/**
 * pushSample 丢最旧策略的非阻塞投递
 * @description
 * - 通道满时弹出最旧的一个再投递，保证消费者拿到的是最近读数
 */
func pushSample[T any](ctx context.Context, ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// FormatBytes 人类可读的字节数
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
