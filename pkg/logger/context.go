package logger

import (
	"context"
	"sync"
)

var (
	registryMu         sync.RWMutex
	contextKeyRegistry = map[interface{}]string{
		RequestIDKey: "request_id",
	}
)

// RegisterContextKey makes *FCtx log calls emit ctx.Value(ctxKey) as logField.
func RegisterContextKey(ctxKey interface{}, logField string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	contextKeyRegistry[ctxKey] = logField
}

func UnregisterContextKey(ctxKey interface{}) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(contextKeyRegistry, ctxKey)
}

func withContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	fields := make([]any, 0, len(contextKeyRegistry)*2)
	for key, fieldName := range contextKeyRegistry {
		if val := ctx.Value(key); val != nil {
			fields = append(fields, fieldName, val)
		}
	}
	return fields
}

// WithRequestID stores id on ctx under RequestIDKey.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
