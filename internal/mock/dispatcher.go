package mock

import (
	"context"
	"fmt"

	"permock/internal/logger"
	"permock/pkg/domain"
)

// Recorder 诊断记录的持久化接口
type Recorder interface {
	RecordObservation(ctx context.Context, obs domain.Observation) error
	RecordChanges(ctx context.Context, trace, url string, changes []domain.FieldChange) error
}

// Outcome 一次分发的结果
type Outcome struct {
	Result  domain.Result
	Body    string
	Changes []domain.FieldChange
}

// Dispatcher 按地址分发已解析的响应体到对应改写函数。
// 未注册/未知地址走诊断路径；改写函数的任何失败都不中断响应交付。
type Dispatcher struct {
	reg      *Registry
	store    Recorder
	log      logger.Logger
	logLimit int
}

// NewDispatcher 创建分发器，store 可为 nil（不持久化）
func NewDispatcher(reg *Registry, store Recorder, l logger.Logger) *Dispatcher {
	if l == nil {
		l = logger.NewNop()
	}
	return &Dispatcher{reg: reg, store: store, log: l, logLimit: 2048}
}

// Dispatch 分发一个已通过 JSON 校验的响应体，返回终态与（可能替换的）文本。
// 返回的 Body 仅在 ResultMutated 时与入参不同。
func (d *Dispatcher) Dispatch(ctx context.Context, desc domain.RequestDescriptor, class domain.Class, body string) Outcome {
	if class == domain.ClassMockable {
		t, ok := d.reg.Lookup(desc.URL)
		if !ok {
			// 配置缺陷：可改写地址没有注册改写函数，降级为诊断记录
			d.log.Warn("可改写地址未注册改写函数", "trace", desc.Trace, "url", desc.URL)
			d.observe(ctx, desc, class, body)
			return Outcome{Result: domain.ResultObserved, Body: body}
		}

		next, changes, err := d.apply(t, desc, body)
		if err != nil {
			d.log.Err(err, "改写函数执行失败，按未改写交付", "trace", desc.Trace, "url", desc.URL)
			return Outcome{Result: domain.ResultObserved, Body: body}
		}
		if len(changes) == 0 {
			d.log.Debug("改写函数未产生变更", "trace", desc.Trace, "url", desc.URL)
			return Outcome{Result: domain.ResultObserved, Body: body}
		}

		for _, c := range changes {
			d.log.Info("字段已改写",
				"trace", desc.Trace, "url", desc.URL,
				"path", c.Path, "before", c.Before, "after", c.After)
		}
		if d.store != nil {
			if err := d.store.RecordChanges(ctx, desc.Trace, desc.URL, changes); err != nil {
				d.log.Err(err, "变更记录落库失败", "trace", desc.Trace)
			}
		}
		return Outcome{Result: domain.ResultMutated, Body: next, Changes: changes}
	}

	// unknown：仅观察
	d.observe(ctx, desc, class, body)
	return Outcome{Result: domain.ResultObserved, Body: body}
}

// apply 在恢复边界内执行改写函数，panic 一律转为错误
func (d *Dispatcher) apply(t Transform, desc domain.RequestDescriptor, body string) (out string, changes []domain.FieldChange, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, changes = body, nil
			err = fmt.Errorf("transform panic: %v", r)
		}
	}()

	tx := NewTx(desc.URL, body)
	if err := t(tx); err != nil {
		return body, nil, err
	}
	return tx.Body(), tx.Changes(), nil
}

// observe 发出诊断记录：日志截断输出，完整响应体落库
func (d *Dispatcher) observe(ctx context.Context, desc domain.RequestDescriptor, class domain.Class, body string) {
	d.log.Info("观察到未改写响应",
		"trace", desc.Trace, "url", desc.URL, "class", string(class),
		"body", truncate(body, d.logLimit))
	if d.store == nil {
		return
	}
	obs := domain.Observation{Trace: desc.Trace, URL: desc.URL, Class: class, Body: body}
	if err := d.store.RecordObservation(ctx, obs); err != nil {
		d.log.Err(err, "诊断记录落库失败", "trace", desc.Trace)
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
