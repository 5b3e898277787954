// Package facade is a thin convenience layer over an HTTP request executor.
//
// A Facade exposes shorthand verbs that build one request configuration and
// hand it to the wrapped executor:
//
//	f, err := facade.New("https://api.example.com", facade.WithTimeout(5*time.Second))
//	var user User
//	err = f.Get(ctx, "/users/1", nil, &user)
//
// The plain verbs (Get, Post, Put, Patch, Delete, Page) always return the
// failure to the caller. The Unsafe variants pass a failure to the per-call
// ErrorHandler, else the facade's handler, else log it and return it as the
// recovered value:
//
//	v, err := f.UnsafeGet(ctx, "/users/1", nil, &user, nil)
//	// err == nil; v is &user on success or the request error otherwise
//
// The facade performs no retries, circuit breaking or caching. Those belong
// to the executor (see pkg/http) and are off by default.
package facade
