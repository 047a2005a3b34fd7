package mock

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"permock/pkg/domain"
)

// Tx 一次改写事务：持有当前 JSON 文本并累积字段变更记录
type Tx struct {
	url     string
	body    string
	changes []domain.FieldChange
}

// NewTx 创建改写事务
func NewTx(url, body string) *Tx {
	return &Tx{url: url, body: body}
}

// URL 返回目标地址
func (tx *Tx) URL() string { return tx.url }

// Body 返回当前（可能已改写的）JSON 文本
func (tx *Tx) Body() string { return tx.body }

// Changes 返回累积的字段变更
func (tx *Tx) Changes() []domain.FieldChange { return tx.changes }

// Get 读取 gjson 路径处的值
func (tx *Tx) Get(path string) gjson.Result {
	return gjson.Get(tx.body, path)
}

// Set 以绝对覆盖方式写入路径处的值并记录变更。
// 写入前后字面量相同则不产生变更记录，因此重复应用是幂等的。
func (tx *Tx) Set(path string, value any) error {
	before := gjson.Get(tx.body, path)
	next, err := sjson.Set(tx.body, path, value)
	if err != nil {
		return err
	}
	after := gjson.Get(next, path)
	if !before.Exists() || before.Raw != after.Raw {
		tx.changes = append(tx.changes, domain.FieldChange{
			Path:   path,
			Before: before.Raw,
			After:  after.Raw,
		})
	}
	tx.body = next
	return nil
}

// SetIfPresent 仅当 guard 路径存在时才写入 path。
// 这是"可能缺失的嵌套字段"的显式访问模式：缺失是正常情况，不写不报错。
func (tx *Tx) SetIfPresent(guard, path string, value any) error {
	if !gjson.Get(tx.body, guard).Exists() {
		return nil
	}
	return tx.Set(path, value)
}
