package lendconsole

import "context"

type originContextKey struct{}

// WithOrigin tags ctx with the console surface performing an operation
// (for example a CLI command name). Audit events emitted under ctx carry
// it as the "origin" metadata entry.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

func originFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	origin, _ := ctx.Value(originContextKey{}).(string)
	return origin
}
