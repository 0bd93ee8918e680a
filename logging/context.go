package logging

import "context"

type debugModeKey struct{}

// EnableDebugMode returns a context under which CDebug* calls log regardless of the logger's
// level. The sampler also computes its spacing statistics under it.
func EnableDebugMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugModeKey{}, true)
}

// IsDebugMode returns whether ctx was produced by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	enabled, _ := ctx.Value(debugModeKey{}).(bool)
	return enabled
}
