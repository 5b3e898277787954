package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"

	"github.com/google/go-querystring/query"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeBin  = "application/octet-stream"
)

// EncodeParams turns a query parameter value into url.Values. Accepted:
// nil, url.Values, map[string]string, map[string][]string, map[string]any and
// structs (or pointers to structs) tagged for go-querystring.
func EncodeParams(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return cloneValues(p), nil
	case map[string][]string:
		return cloneValues(p), nil
	case map[string]string:
		v := make(url.Values, len(p))
		for k, s := range p {
			v.Set(k, s)
		}
		return v, nil
	case map[string]any:
		v := make(url.Values, len(p))
		for k, raw := range p {
			addParam(v, k, raw)
		}
		return v, nil
	default:
		v, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("encoding query params: %w", err)
		}
		return v, nil
	}
}

// addParam adds raw under key. Slices and arrays become repeated keys; nil
// values, including nil elements, are skipped.
func addParam(v url.Values, key string, raw any) {
	if raw == nil {
		return
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if b, ok := raw.([]byte); ok {
			v.Add(key, string(b))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			addParam(v, key, rv.Index(i).Interface())
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return
		}
		addParam(v, key, rv.Elem().Interface())
	default:
		v.Add(key, fmt.Sprint(raw))
	}
}

func cloneValues(src map[string][]string) url.Values {
	if src == nil {
		return nil
	}
	dst := make(url.Values, len(src))
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
	return dst
}

// encodeBody returns the body bytes and the Content-Type they imply.
// Bytes are buffered so the body can be replayed on retry.
func encodeBody(data any) ([]byte, string, error) {
	switch d := data.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return d, contentTypeJSON, nil
	case []byte:
		return d, contentTypeBin, nil
	case string:
		return []byte(d), contentTypeText, nil
	case url.Values:
		return []byte(d.Encode()), contentTypeForm, nil
	case io.Reader:
		b, err := io.ReadAll(d)
		if err != nil {
			return nil, "", fmt.Errorf("reading request body: %w", err)
		}
		return b, contentTypeBin, nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(d); err != nil {
			return nil, "", fmt.Errorf("encoding json body: %w", err)
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), contentTypeJSON, nil
	}
}

// joinURL appends a relative path to base the way browser HTTP clients do:
// exactly one slash between the base path and the relative path.
func joinURL(base, rel string) string {
	if rel == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}
