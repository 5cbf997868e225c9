package audit

import "context"

type sourceKey struct{}

type source struct {
	ip        string
	userAgent string
}

// WithSource records the client address and user agent of the current
// request so that events emitted further down carry them.
func WithSource(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source{ip: ip, userAgent: userAgent})
}

func sourceFromContext(ctx context.Context) (source, bool) {
	src, ok := ctx.Value(sourceKey{}).(source)
	return src, ok
}
