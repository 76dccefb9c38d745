package ctxutil

import "context"

// RequestData carries the authenticated caller. UserID is the token subject.
type RequestData struct {
	TokenString string
	UserID      string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context { return with(ctx, rd) }

func GetRequestData(ctx context.Context) *RequestData { return from[RequestData](ctx) }

// UserID returns the authenticated user id, or "" for anonymous contexts.
func UserID(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return ""
}
