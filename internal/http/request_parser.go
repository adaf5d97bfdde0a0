// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Transaction bodies may arrive as JSON or as form-encoded data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rewards/internal/core"
)

const (
	maxBodyBytes    = 1 << 20
	defaultPageSize = 20
	maxPageSize     = 100
)

// errMalformedBody marks a body that could not be decoded at all.
var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 1 MiB of the request body once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a string value from the parsed data (JSON or form).
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

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransactionInput reads customerId, amount and transactionDate.
// Present but unparsable values are reported as field errors; absent values
// stay nil so validation reports them as required.
func ParseTransactionInput(p *RequestBodyParser) (core.TransactionInput, *core.ValidationError) {
	var (
		in   core.TransactionInput
		verr core.ValidationError
	)

	if v := p.Get("customerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("customerId", "Customer ID must be a positive integer")
		} else {
			in.CustomerID = &id
		}
	}

	if v := p.Get("amount"); v != "" {
		amount, err := core.ParseAmount(v)
		if errors.Is(err, core.ErrAmountTooLarge) {
			verr.Add("amount", "Amount must not exceed "+core.FormatAmount(core.MaxAmount))
		} else if err != nil {
			verr.Add("amount", "Amount must be a decimal number")
		} else {
			in.Amount = &amount
		}
	}

	if v := p.Get("transactionDate"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			verr.Add("transactionDate", "Transaction date must be formatted as YYYY-MM-DD")
		} else {
			in.OccurredOn = &d
		}
	}

	return in, &verr
}

// ParsePageRequest reads page (zero-based, default 0) and size (default 20, at most 100).
func ParsePageRequest(query url.Values) (core.PageRequest, error) {
	req := core.PageRequest{Page: 0, Size: defaultPageSize}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return core.PageRequest{}, fmt.Errorf("page must be a non-negative integer, got %q", v)
		}
		req.Page = page
	}
	if v := strings.TrimSpace(query.Get("size")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > maxPageSize {
			return core.PageRequest{}, fmt.Errorf("size must be between 1 and %d, got %q", maxPageSize, v)
		}
		req.Size = size
	}
	return req, nil
}

// ParseCustomerID parses a positive customer id path parameter.
func ParseCustomerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("customer id must be a positive integer, got %q", raw)
	}
	return id, nil
}
