package facade

import (
	"context"
)

// ErrorHandler turns a request failure into a recovery value, or rejects it
// by returning a non-nil error.
type ErrorHandler func(ctx context.Context, err error) (any, error)

// Reject is an ErrorHandler that returns the failure unchanged, making the
// Unsafe verbs behave like the plain ones.
func Reject(_ context.Context, err error) (any, error) {
	return nil, err
}

// Recover returns an ErrorHandler that replaces every failure with v.
func Recover(v any) ErrorHandler {
	return func(context.Context, error) (any, error) {
		return v, nil
	}
}

// UnsafeGet is Get that routes failures through UnsafeCatch. On success it
// returns out.
func (f *Facade) UnsafeGet(ctx context.Context, path string, params any, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Get(ctx, path, params, out, opts...), out, handle)
}

// UnsafePage is Page that routes failures through UnsafeCatch.
func (f *Facade) UnsafePage(ctx context.Context, path string, q PageQuery, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Page(ctx, path, q, out, opts...), out, handle)
}

// UnsafePost is Post that routes failures through UnsafeCatch.
func (f *Facade) UnsafePost(ctx context.Context, path string, data any, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Post(ctx, path, data, out, opts...), out, handle)
}

// UnsafePut is Put that routes failures through UnsafeCatch.
func (f *Facade) UnsafePut(ctx context.Context, path string, data any, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Put(ctx, path, data, out, opts...), out, handle)
}

// UnsafePatch is Patch that routes failures through UnsafeCatch.
func (f *Facade) UnsafePatch(ctx context.Context, path string, data any, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Patch(ctx, path, data, out, opts...), out, handle)
}

// UnsafeDelete is Delete that routes failures through UnsafeCatch.
func (f *Facade) UnsafeDelete(ctx context.Context, path string, params any, out any, handle ErrorHandler, opts ...RequestOption) (any, error) {
	return f.settle(ctx, f.Delete(ctx, path, params, out, opts...), out, handle)
}

func (f *Facade) settle(ctx context.Context, err error, out any, handle ErrorHandler) (any, error) {
	if err == nil {
		return out, nil
	}
	return f.UnsafeCatch(ctx, err, handle)
}

// UnsafeCatch resolves a failure: handle if non-nil, else the facade's
// handler, else the error is logged once and returned as the value with a
// nil error.
func (f *Facade) UnsafeCatch(ctx context.Context, err error, handle ErrorHandler) (any, error) {
	if handle == nil {
		handle = f.ErrorHandler()
	}
	if handle != nil {
		return handle(ctx, err)
	}
	f.log.ErrorFCtx(ctx, "unhandled request error: %v", err)
	return err, nil
}
