package cdp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/rpcc"

	"permock/internal/handler"
	"permock/internal/logger"
	"permock/pkg/domain"
)

// Manager 流量观察者：附加到浏览器目标并订阅单一主机的响应拦截。
// 只注册 Response 阶段的拦截模式，请求阶段不暂停、不修改。
type Manager struct {
	devtoolsURL    string
	pattern        string
	deliverTimeout time.Duration

	conn    *rpcc.Conn
	client  *cdp.Client
	ctx     context.Context
	cancel  context.CancelFunc
	handler *handler.Handler
	log     logger.Logger
}

// Options 观察者配置。
// ProcessTimeoutMS 只约束终结交付调用（fulfill / continue / fail），
// 响应体的读取累积随流走，不设处理侧计时器；<=0 表示交付也不限时。
type Options struct {
	DevToolsURL      string
	Pattern          string
	ProcessTimeoutMS int
	Handler          *handler.Handler
	Logger           logger.Logger
}

// New 创建流量观察者
func New(opts Options) *Manager {
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		devtoolsURL:    opts.DevToolsURL,
		pattern:        opts.Pattern,
		deliverTimeout: time.Duration(opts.ProcessTimeoutMS) * time.Millisecond,
		handler:        opts.Handler,
		log:            l,
	}
}

// AttachTarget 附加到指定目标，target 为空时选取第一个页面目标
func (m *Manager) AttachTarget(target string) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx = ctx
	m.cancel = cancel

	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}
	var sel *devtool.Target
	for i := range targets {
		if string(targets[i].ID) == target || target == "" {
			sel = targets[i]
			if target == "" && targets[i].Type == devtool.Page {
				break
			}
		}
	}
	if sel == nil {
		return fmt.Errorf("no target")
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("dial target: %w", err)
	}
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.log.Info("已附加浏览器目标", "target", string(sel.ID), "url", sel.URL)
	return nil
}

// Detach 断开与目标的连接
func (m *Manager) Detach() error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// Enable 启用拦截：只订阅目标主机的响应阶段
func (m *Manager) Enable() error {
	if m.client == nil {
		return fmt.Errorf("not attached")
	}
	if err := m.client.Network.Enable(m.ctx, nil); err != nil {
		return fmt.Errorf("enable network: %w", err)
	}
	p := m.pattern
	patterns := []fetch.RequestPattern{
		{URLPattern: &p, RequestStage: fetch.RequestStageResponse},
	}
	if err := m.client.Fetch.Enable(m.ctx, &fetch.EnableArgs{Patterns: patterns}); err != nil {
		return fmt.Errorf("enable fetch: %w", err)
	}
	go m.consume()
	m.log.Info("响应拦截已启用", "pattern", m.pattern)
	return nil
}

// Disable 停用拦截
func (m *Manager) Disable() error {
	if m.client == nil {
		return fmt.Errorf("not attached")
	}
	return m.client.Fetch.Disable(m.ctx)
}

// consume 持续接收拦截事件，每个事件独立协程处理
func (m *Manager) consume() {
	rp, err := m.client.Fetch.RequestPaused(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅拦截事件流失败")
		return
	}
	defer rp.Close()

	m.log.Info("开始消费拦截事件流")
	for {
		ev, err := rp.Recv()
		if err != nil {
			if m.ctx.Err() == nil {
				m.log.Warn("拦截事件流中断", "error", err.Error())
			}
			return
		}
		go m.handle(ev)
	}
}

// handle 处理一次拦截事件。请求阶段的事件不属于本工具，直接放行。
func (m *Manager) handle(ev *fetch.RequestPausedReply) {
	if ev.ResponseStatusCode == nil {
		ctx, cancel := deliveryContext(m.ctx, m.deliverTimeout)
		defer cancel()
		if err := m.client.Fetch.ContinueRequest(ctx, &fetch.ContinueRequestArgs{RequestID: ev.RequestID}); err != nil {
			m.log.Debug("放行请求失败", "requestID", string(ev.RequestID), "error", err.Error())
		}
		return
	}

	desc := domain.RequestDescriptor{
		Trace:      uuid.NewString(),
		URL:        ev.Request.URL,
		Method:     ev.Request.Method,
		StatusCode: *ev.ResponseStatusCode,
	}
	// 读取累积跟随流本身的节奏，慢响应不能被处理侧掐断
	m.handler.HandleResponse(m.ctx, desc, newBodyStream(m.client, ev, m.deliverTimeout, m.log))
}
