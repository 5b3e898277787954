package facade

import (
	"github.com/milan604/reqfacade/pkg/apperr"
)

// PageQuery is the conventional paged-list query. Nil fields are not sent.
type PageQuery struct {
	// Page is the 1-based page number.
	Page *int `url:"page,omitempty" json:"page,omitempty"`
	// PageSize is the number of records per page.
	PageSize *int `url:"pageSize,omitempty" json:"pageSize,omitempty"`
	// Asc requests ascending order.
	Asc *bool `url:"asc,omitempty" json:"asc,omitempty"`
}

// NewPageQuery returns a query for page with pageSize records.
func NewPageQuery(page, pageSize int) PageQuery {
	return PageQuery{Page: &page, PageSize: &pageSize}
}

// WithAsc returns a copy of q with the sort direction set.
func (q PageQuery) WithAsc(asc bool) PageQuery {
	q.Asc = &asc
	return q
}

// PageResult mirrors the MybatisPlus IPage list envelope.
type PageResult[T any] struct {
	Total            int64  `json:"total"`
	Size             int64  `json:"size"`
	Current          int64  `json:"current"`
	Orders           []any  `json:"orders"`
	OptimizeCountSQL bool   `json:"optimizeCountSql"`
	SearchCount      bool   `json:"searchCount"`
	CountID          *int64 `json:"countId"`
	MaxLimit         *int64 `json:"maxLimit"`
	Pages            int64  `json:"pages"`
	Records          []T    `json:"records"`
}

// HasNext reports whether pages remain after the current one.
func (p PageResult[T]) HasNext() bool {
	return p.Current < p.Pages
}

// ResponseModel is the {code, data, msg} envelope many backends wrap
// responses in. The facade never unwraps it on its own.
type ResponseModel[T any] struct {
	Code int    `json:"code"`
	Data *T     `json:"data,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// OK reports whether Code is the conventional success code 0.
func (m ResponseModel[T]) OK() bool {
	return m.Code == 0
}

// Unwrap returns Data when Code equals success, otherwise an envelope error
// carrying Msg.
func (m ResponseModel[T]) Unwrap(success int) (T, error) {
	var zero T
	if m.Code != success {
		msg := m.Msg
		if msg == "" {
			msg = apperr.ErrorCodeEnvelope.Message()
		}
		return zero, apperr.Newf(apperr.ErrorCodeEnvelope, "code %d: %s", m.Code, msg)
	}
	if m.Data == nil {
		return zero, nil
	}
	return *m.Data, nil
}
