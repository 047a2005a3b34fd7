package policy

import (
	"fmt"
	"net/url"
	"strings"

	"permock/pkg/domain"
)

// Policy 静态的地址关注策略，进程启动后不可变
type Policy struct {
	mockable map[string]struct{}
	ignored  map[string]struct{}
}

// New 构建策略，mockable 与 ignored 交集非空时报错
func New(mockable, ignored []string) (*Policy, error) {
	p := &Policy{
		mockable: make(map[string]struct{}, len(mockable)),
		ignored:  make(map[string]struct{}, len(ignored)),
	}
	for _, raw := range mockable {
		p.mockable[Normalize(raw)] = struct{}{}
	}
	for _, raw := range ignored {
		key := Normalize(raw)
		if _, ok := p.mockable[key]; ok {
			return nil, fmt.Errorf("address in both mockable and ignored: %s", raw)
		}
		p.ignored[key] = struct{}{}
	}
	return p, nil
}

// Classify 对目标地址做 O(1) 分类
func (p *Policy) Classify(target string) domain.Class {
	key := Normalize(target)
	if _, ok := p.ignored[key]; ok {
		return domain.ClassIgnored
	}
	if _, ok := p.mockable[key]; ok {
		return domain.ClassMockable
	}
	return domain.ClassUnknown
}

// Normalize 归一化目标地址：忽略 query/fragment 与末尾斜杠，host 小写
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	path := strings.TrimSuffix(u.Path, "/")
	return u.Scheme + "://" + strings.ToLower(u.Host) + path
}
