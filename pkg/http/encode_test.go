package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type pageParams struct {
	Page     *int  `url:"page,omitempty"`
	PageSize *int  `url:"pageSize,omitempty"`
	Asc      *bool `url:"asc,omitempty"`
}

func TestEncodeParams(t *testing.T) {
	one, ten, asc := 1, 10, true

	tests := []struct {
		name    string
		in      any
		want    url.Values
		wantErr bool
	}{
		{name: "nil", in: nil, want: nil},
		{name: "values", in: url.Values{"a": {"1", "2"}}, want: url.Values{"a": {"1", "2"}}},
		{name: "string map", in: map[string]string{"a": "1"}, want: url.Values{"a": {"1"}}},
		{name: "any map skips nil", in: map[string]any{"a": 1, "b": nil, "c": true}, want: url.Values{"a": {"1"}, "c": {"true"}}},
		{
			name: "any map expands lists",
			in:   map[string]any{"ids": []int{1, 2}, "tags": []any{"a", nil, "b"}, "p": &one, "none": (*int)(nil)},
			want: url.Values{"ids": {"1", "2"}, "tags": {"a", "b"}, "p": {"1"}},
		},
		{name: "struct", in: pageParams{Page: &one, PageSize: &ten}, want: url.Values{"page": {"1"}, "pageSize": {"10"}}},
		{name: "pointer to struct", in: &pageParams{Asc: &asc}, want: url.Values{"asc": {"true"}}},
		{name: "unsupported", in: 42, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeParams(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeParamsClones(t *testing.T) {
	src := url.Values{"a": {"1"}}
	got, err := EncodeParams(src)
	require.NoError(t, err)
	got.Add("a", "2")
	require.Equal(t, []string{"1"}, src["a"])
}

func TestJoinURL(t *testing.T) {
	require.Equal(t, "http://h/api/users", joinURL("http://h/api/", "/users"))
	require.Equal(t, "http://h/users", joinURL("http://h", "users"))
	require.Equal(t, "http://h/api", joinURL("http://h/api", ""))
}
