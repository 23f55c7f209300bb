package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/marbelle/internal/domain"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       any               `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
}

// Pagination describes the page window of a list response. Next and
// Previous are absolute URLs, null at either end.
type Pagination struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// Success writes a 200 envelope.
func Success(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Paginated writes a 200 envelope whose data is one page of a listing.
func Paginated[T any](w http.ResponseWriter, r *http.Request, message string, items []T, count int64, page domain.Page) {
	if items == nil {
		items = []T{}
	}
	page = page.Normalize()

	p := &Pagination{Count: count}
	if int64(page.Number*page.Size) < count {
		next := pageURL(r, page.Number+1)
		p.Next = &next
	}
	if page.Number > 1 {
		prev := pageURL(r, page.Number-1)
		p.Previous = &prev
	}

	writeJSON(w, http.StatusOK, Envelope{
		Success:    true,
		Message:    message,
		Data:       items,
		Pagination: p,
	})
}

// ParsePage reads the page and page_size query parameters. Garbage values
// fall back to the defaults rather than failing the request.
func ParsePage(r *http.Request) domain.Page {
	q := r.URL.Query()
	page := domain.Page{}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Number = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
		page.Size = n
	}
	return page.Normalize()
}

// pageURL rebuilds the request URL with page replaced. Page 1 drops the
// parameter.
func pageURL(r *http.Request, page int) string {
	u := url.URL{
		Scheme: requestScheme(r),
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}
