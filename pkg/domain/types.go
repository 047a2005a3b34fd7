package domain

// Class 地址分类结果
type Class string

const (
	// ClassMockable 响应体会被解析并可能被改写
	ClassMockable Class = "mockable"
	// ClassIgnored 响应完全不做检查，原样放行
	ClassIgnored Class = "ignored"
	// ClassUnknown 未配置的地址，仅观察记录，不改写
	ClassUnknown Class = "unknown"
)

// Result 单次响应处理的终态
type Result string

const (
	// ResultIgnored 分类为忽略，未读取任何字节
	ResultIgnored Result = "ignored"
	// ResultPassedThrough 解析失败或无需处理，原始字节原样交付
	ResultPassedThrough Result = "passed_through"
	// ResultMutated 解析成功且改写函数生效，交付替换体
	ResultMutated Result = "mutated"
	// ResultObserved 解析成功但未发生改写，内容不变交付
	ResultObserved Result = "observed"
	// ResultAborted 底层连接中断，会话静默终止，未交付任何数据
	ResultAborted Result = "aborted"
)

// RequestDescriptor 一次被拦截请求的只读描述
type RequestDescriptor struct {
	// Trace 进程内关联请求与其响应流的不透明句柄
	Trace      string
	URL        string
	Method     string
	StatusCode int
}

// FieldChange 单个字段的改写记录，Before/After 为原始 JSON 字面量
type FieldChange struct {
	Path   string
	Before string
	After  string
}

// Observation 未改写/未知响应的诊断快照
type Observation struct {
	Trace string
	URL   string
	Class Class
	Body  string
}

// InterceptEvent 单次响应处理完成后对外发布的事件
type InterceptEvent struct {
	Trace     string        `json:"trace"`
	URL       string        `json:"url"`
	Method    string        `json:"method"`
	Result    Result        `json:"result"`
	Changes   []FieldChange `json:"changes,omitempty"`
	Timestamp int64         `json:"timestamp"`
}
