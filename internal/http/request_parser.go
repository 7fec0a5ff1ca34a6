// This file parses request bodies and query strings into domain values.
// Bodies may be JSON or form-encoded.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads the body once and serves values from either
// a JSON object or form data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. JSON is detected by content type or a leading
// brace; anything else is parsed as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitized value for key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransaction builds a transaction from the body fields title,
// amount, type, category and date. The date defaults to today. Field
// errors wrap the core validation sentinels.
func ParseTransaction(p *RequestBodyParser, userID string, now time.Time) (core.Transaction, error) {
	t := core.Transaction{
		UserID:   userID,
		Title:    p.Get("title"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	}

	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = typ

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", p.Get("amount"), core.ErrInvalidAmount)
	}
	t.Amount = amount

	if t.Date == "" {
		t.Date = core.DateOf(now).String()
	}
	if _, err := core.ParseDate(t.Date); err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", t.Date, core.ErrInvalidDate)
	}
	return t, nil
}

// ErrBadQuery marks malformed query parameters.
var ErrBadQuery = errors.New("bad query parameter")

// ParseFilter reads type, date and period from the query string.
func ParseFilter(q url.Values) (insights.Filter, error) {
	typ, err := insights.ParseTypeFilter(q.Get("type"))
	if err != nil {
		return insights.Filter{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	period, err := insights.ParseRelativePeriod(q.Get("period"))
	if err != nil {
		return insights.Filter{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	f := insights.Filter{Type: typ, Period: period}

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return insights.Filter{}, fmt.Errorf("%w: date %q", ErrBadQuery, v)
		}
		f.Date = &d
	}
	return f, nil
}

// ParsePeriod reads the insight period from the query string.
func ParsePeriod(q url.Values) (insights.InsightPeriod, error) {
	p, err := insights.ParseInsightPeriod(q.Get("period"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	return p, nil
}

// ParseCategoryType reads the transaction type for category lists;
// empty means expense.
func ParseCategoryType(s string) (core.TransactionType, error) {
	if strings.TrimSpace(s) == "" {
		return core.Expense, nil
	}
	t, err := core.ParseTransactionType(s)
	if err != nil {
		return "", fmt.Errorf("%w: type %q", ErrBadQuery, s)
	}
	return t, nil
}
