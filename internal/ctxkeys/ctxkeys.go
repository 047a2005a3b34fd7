package ctxkeys

// TraceIDKey 在 context 中携带本次拦截的追踪 ID
type TraceIDKey struct{}
