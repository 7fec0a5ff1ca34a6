package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// HeaderUserID identifies the caller on every /api request.
const HeaderUserID = "X-User-ID"

type userKey struct{}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func userFrom(r *http.Request) string {
	u, _ := r.Context().Value(userKey{}).(string)
	return u
}

// sanitizeInput trims s and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrEmptyCategory,
	core.ErrEmptyUserID,
	core.ErrTitleTooLong,
}

// errorFor maps an error to the response a client should see. Only
// unexpected errors are logged.
func errorFor(r *http.Request, err error) *ResponseBuilder {
	switch {
	case errors.Is(err, ErrBadQuery):
		return BadRequestError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError(err.Error())
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return UnprocessableEntityError(err.Error())
		}
	}
	fields := applog.NewFields().
		WithError(err).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
	fields[applog.FieldUserID] = userFrom(r)
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	return InternalServerError("internal error")
}
