// Package ctxutil stores request-scoped values on a context.Context.
package ctxutil

import "context"

// key is distinct per stored type, so values never collide.
type key[T any] struct{}

func with[T any](ctx context.Context, v *T) context.Context {
	return context.WithValue(Default(ctx), key[T]{}, v)
}

func from[T any](ctx context.Context) *T {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(key[T]{}).(*T)
	return v
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
