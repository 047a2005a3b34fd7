package cdp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/fetch"
	cdpio "github.com/mafredri/cdp/protocol/io"
	"github.com/mafredri/cdp/protocol/network"

	"permock/internal/logger"
)

// readChunkSize 单次 IO.Read 请求的字节数
const readChunkSize = 64 * 1024

// bodyRewriteDropHeaders 交付替换体时必须清除的响应头，
// 取流获得的是已解压内容，保留这些头会导致浏览器解析失败
var bodyRewriteDropHeaders = []string{"content-encoding", "content-length", "content-md5", "etag"}

// bodyStream 将一次 Fetch 暂停事件适配为 handler.BodyStream。
// 取流动作推迟到第一次 Read，ignored 路径因此不产生任何读取。
// terminated 保证整个会话只有一次终结动作（fulfill / continue / fail）。
type bodyStream struct {
	client     *cdp.Client
	ev         *fetch.RequestPausedReply
	timeout    time.Duration
	log        logger.Logger
	handle     cdpio.StreamHandle
	taken      bool
	closed     bool
	terminated bool
}

func newBodyStream(client *cdp.Client, ev *fetch.RequestPausedReply, timeout time.Duration, l logger.Logger) *bodyStream {
	return &bodyStream{client: client, ev: ev, timeout: timeout, log: l}
}

// deliveryContext 终结调用专用的限时上下文。
// 只有 fulfill / continue / fail 受限时，读取路径从不套计时器。
func deliveryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Read 返回响应体的下一块字节，首次调用时接管响应体流
func (s *bodyStream) Read(ctx context.Context) ([]byte, bool, error) {
	if s.terminated {
		return nil, false, fmt.Errorf("session already terminated")
	}
	if !s.taken {
		reply, err := s.client.Fetch.TakeResponseBodyAsStream(ctx, &fetch.TakeResponseBodyAsStreamArgs{
			RequestID: s.ev.RequestID,
		})
		if err != nil {
			return nil, false, fmt.Errorf("take response body: %w", err)
		}
		s.handle = reply.Stream
		s.taken = true
	}

	size := readChunkSize
	reply, err := s.client.IO.Read(ctx, &cdpio.ReadArgs{Handle: s.handle, Size: &size})
	if err != nil {
		return nil, false, fmt.Errorf("read stream: %w", err)
	}

	data := []byte(reply.Data)
	if reply.Base64Encoded != nil && *reply.Base64Encoded {
		data, err = base64.StdEncoding.DecodeString(reply.Data)
		if err != nil {
			return nil, false, fmt.Errorf("decode stream chunk: %w", err)
		}
	}
	if reply.EOF && !s.closed {
		s.closed = true
		if err := s.client.IO.Close(ctx, &cdpio.CloseArgs{Handle: s.handle}); err != nil {
			s.log.Debug("关闭响应体流失败", "requestID", string(s.ev.RequestID), "error", err.Error())
		}
	}
	return data, reply.EOF, nil
}

// Write 以替换头后的 FulfillRequest 交付完整响应体
func (s *bodyStream) Write(ctx context.Context, body []byte) error {
	if s.terminated {
		return fmt.Errorf("session already terminated")
	}
	s.terminated = true

	ctx, cancel := deliveryContext(ctx, s.timeout)
	defer cancel()

	code := 200
	if s.ev.ResponseStatusCode != nil {
		code = *s.ev.ResponseStatusCode
	}
	return s.client.Fetch.FulfillRequest(ctx, &fetch.FulfillRequestArgs{
		RequestID:       s.ev.RequestID,
		ResponseCode:    code,
		ResponseHeaders: s.deliveryHeaders(),
		Body:            body,
	})
}

// Disconnect 结束会话。未取流时原样放行；
// 已取流却未写入说明连接已中断，尽力中止请求后静默退出。
func (s *bodyStream) Disconnect(ctx context.Context) error {
	if s.terminated {
		return nil
	}
	s.terminated = true

	ctx, cancel := deliveryContext(ctx, s.timeout)
	defer cancel()

	if !s.taken {
		return s.client.Fetch.ContinueResponse(ctx, &fetch.ContinueResponseArgs{RequestID: s.ev.RequestID})
	}
	if err := s.client.Fetch.FailRequest(ctx, &fetch.FailRequestArgs{
		RequestID:   s.ev.RequestID,
		ErrorReason: network.ErrorReasonAborted,
	}); err != nil {
		s.log.Debug("中止请求失败", "requestID", string(s.ev.RequestID), "error", err.Error())
	}
	return nil
}

// deliveryHeaders 复制原始响应头并剔除与替换体冲突的条目
func (s *bodyStream) deliveryHeaders() []fetch.HeaderEntry {
	out := make([]fetch.HeaderEntry, 0, len(s.ev.ResponseHeaders))
	for _, h := range s.ev.ResponseHeaders {
		drop := false
		for _, name := range bodyRewriteDropHeaders {
			if strings.EqualFold(h.Name, name) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, h)
		}
	}
	return out
}
