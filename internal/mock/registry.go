package mock

import (
	"permock/internal/policy"
)

// Transform 针对单个端点的响应体改写函数，原地修改事务内的 JSON 文本。
// 改写函数只改动自己理解的字段，缺失的可选字段不是错误，跳过即可。
type Transform func(tx *Tx) error

// Registry 目标地址到改写函数的映射，启动时构建完成后只读
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{transforms: make(map[string]Transform)}
}

// Register 注册一个地址的改写函数，同一地址仅允许一个
func (r *Registry) Register(target string, t Transform) {
	r.transforms[policy.Normalize(target)] = t
}

// Lookup 查找地址对应的改写函数
func (r *Registry) Lookup(target string) (Transform, bool) {
	t, ok := r.transforms[policy.Normalize(target)]
	return t, ok
}

// Len 返回已注册的改写函数数量
func (r *Registry) Len() int {
	return len(r.transforms)
}
