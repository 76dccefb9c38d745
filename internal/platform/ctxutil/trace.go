package ctxutil

import "context"

// TraceData correlates log lines and job runs with the HTTP request that caused them.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context { return with(ctx, td) }

func GetTraceData(ctx context.Context) *TraceData { return from[TraceData](ctx) }

// LogFields returns trace_id and request_id as logger key/value pairs, skipping empty ids.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	return kv
}
