package handler

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"permock/internal/codec"
	"permock/internal/ctxkeys"
	"permock/internal/logger"
	"permock/internal/mock"
	"permock/internal/policy"
	"permock/pkg/domain"
)

// BodyStream 一次响应的字节流句柄。
// Read 按到达顺序返回下一块字节，eof 表示流结束；
// Write 交付最终（替换或原样）字节，Disconnect 结束会话。
// 实现方保证 Write 与 Disconnect 合计只产生一次终结动作。
type BodyStream interface {
	Read(ctx context.Context) (chunk []byte, eof bool, err error)
	Write(ctx context.Context, body []byte) error
	Disconnect(ctx context.Context) error
}

// Handler 单次响应处理管线：分类 → 流式解码累积 → 解析 → 分发 → 交付。
// 策略与注册表只读共享，各响应的处理之间无共享可变状态。
type Handler struct {
	policy     *policy.Policy
	dispatcher *mock.Dispatcher
	events     chan domain.InterceptEvent
	log        logger.Logger
	stats      Stats
}

// Config 配置选项
type Config struct {
	Policy     *policy.Policy
	Dispatcher *mock.Dispatcher
	Events     chan domain.InterceptEvent
	Logger     logger.Logger
}

// New 创建处理器
func New(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{
		policy:     cfg.Policy,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		log:        l,
	}
}

// HandleResponse 处理一次被拦截的响应，返回会话终态。
// 任何失败对页面都不可见：最坏情况响应按服务端原样交付。
func (h *Handler) HandleResponse(ctx context.Context, desc domain.RequestDescriptor, stream BodyStream) domain.Result {
	h.stats.Intercepted.Add(1)
	// 下游（分发、诊断库写入）的日志按 trace 关联到本次会话
	ctx = context.WithValue(ctx, ctxkeys.TraceIDKey{}, desc.Trace)

	// ignored 短路：不开流、不读字节、不打日志
	class := h.policy.Classify(desc.URL)
	if class == domain.ClassIgnored {
		h.stats.Ignored.Add(1)
		_ = stream.Disconnect(ctx)
		return domain.ResultIgnored
	}

	l := h.log.With("trace", desc.Trace, "url", desc.URL)
	start := time.Now()
	l.Debug("开始处理响应", "class", string(class), "status", desc.StatusCode)

	// 全量累积：解码持续到流结束信号，之后才解析一次
	dec := codec.NewDecoder()
	var raw bytes.Buffer
	var text strings.Builder
	var decodeErr error
	for {
		chunk, eof, err := stream.Read(ctx)
		if err != nil {
			// 连接中断或无法取流：静默终止，不写任何部分数据
			l.Debug("响应流读取失败，终止会话", "error", err.Error())
			h.stats.Aborted.Add(1)
			_ = stream.Disconnect(ctx)
			return domain.ResultAborted
		}
		raw.Write(chunk)
		if decodeErr == nil {
			s, derr := dec.Write(chunk, eof)
			if derr != nil {
				decodeErr = derr
			}
			text.WriteString(s)
		}
		if eof {
			break
		}
	}

	if decodeErr != nil {
		// 解码失败只影响解析，完整的原始字节仍原样交付
		l.Debug("解码失败，原样交付", "error", decodeErr.Error())
		return h.deliver(ctx, stream, l, desc, domain.ResultPassedThrough, raw.Bytes(), nil, start)
	}

	body := text.String()
	if !gjson.Valid(body) {
		// ParseError：本地恢复，交付原始字节
		l.Debug("响应体非法 JSON，原样交付", "size", raw.Len())
		return h.deliver(ctx, stream, l, desc, domain.ResultPassedThrough, raw.Bytes(), nil, start)
	}

	out := h.dispatcher.Dispatch(ctx, desc, class, body)
	payload := raw.Bytes()
	if out.Result == domain.ResultMutated {
		payload = codec.Encode(out.Body)
	}
	return h.deliver(ctx, stream, l, desc, out.Result, payload, out.Changes, start)
}

// deliver 执行唯一一次写入与断开，并完成计数和事件发布
func (h *Handler) deliver(
	ctx context.Context,
	stream BodyStream,
	l logger.Logger,
	desc domain.RequestDescriptor,
	result domain.Result,
	payload []byte,
	changes []domain.FieldChange,
	start time.Time,
) domain.Result {
	if err := stream.Write(ctx, payload); err != nil {
		l.Debug("交付写入失败", "error", err.Error())
		h.stats.Aborted.Add(1)
		_ = stream.Disconnect(ctx)
		return domain.ResultAborted
	}
	_ = stream.Disconnect(ctx)

	switch result {
	case domain.ResultMutated:
		h.stats.Mutated.Add(1)
	case domain.ResultObserved:
		h.stats.Observed.Add(1)
	default:
		h.stats.PassedThrough.Add(1)
	}

	h.sendEvent(domain.InterceptEvent{
		Trace:   desc.Trace,
		URL:     desc.URL,
		Method:  desc.Method,
		Result:  result,
		Changes: changes,
	})
	l.Debug("响应处理完成", "result", string(result), "duration", time.Since(start).String())
	return result
}

// sendEvent 非阻塞发布事件，通道满时丢弃
func (h *Handler) sendEvent(evt domain.InterceptEvent) {
	if h.events == nil {
		return
	}
	evt.Timestamp = time.Now().UnixMilli()
	select {
	case h.events <- evt:
	default:
	}
}
