// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockCatalogResponse defines the behavior for a mock catalog endpoint response.
type MockCatalogResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog API server for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockCatalog creates a new mock catalog API server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockCatalogResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler provides empty but well-formed catalog responses.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	switch r.URL.Path {
	case "/v1/search":
		w.Write([]byte(`{"searchResult": {"totalResultCount": 0, "items": []}}`))
	case "/v1/items":
		w.Write([]byte(`{"itemsResult": {"items": []}}`))
	default:
		w.Write([]byte(`{}`))
	}
}

// NewHealthyResponse creates a standard 200 OK response with the given body.
func NewHealthyResponse(data string) MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewThrottleResponse creates a 429 Too Many Requests response.
func NewThrottleResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors": [{"code": "TooManyRequests", "message": "Request rate exceeded"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors": [{"code": "InternalFailure", "message": "The server encountered an internal error"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewClientErrorResponse creates a 400 Bad Request response.
func NewClientErrorResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"errors": [{"code": "InvalidParameterValue", "message": "The value provided for itemCount is invalid"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// SearchBody builds a wire-shaped search response containing one minimal
// item per ASIN.
func SearchBody(total int, asins ...string) string {
	items := make([]map[string]any, 0, len(asins))
	for i, asin := range asins {
		items = append(items, map[string]any{
			"asin":          asin,
			"detailPageUrl": "https://www.primecart.com/dp/" + asin,
			"itemInfo": map[string]any{
				"title": map[string]any{"displayValue": fmt.Sprintf("Test Product %d", i+1)},
			},
			"offers": map[string]any{
				"listings": []map[string]any{{
					"price":        map[string]any{"amount": 19.99, "currency": "USD"},
					"deliveryInfo": map[string]any{"isPrimeEligible": true},
				}},
			},
			"customerReviews": map[string]any{"starRating": 4.5, "count": 123},
		})
	}

	body, _ := json.Marshal(map[string]any{
		"searchResult": map[string]any{
			"totalResultCount": total,
			"searchUrl":        "https://www.primecart.com/s?k=test",
			"items":            items,
		},
	})
	return string(body)
}

// ItemsBody builds a wire-shaped item lookup response containing one
// detailed item per ASIN.
func ItemsBody(asins ...string) string {
	items := make([]map[string]any, 0, len(asins))
	for _, asin := range asins {
		items = append(items, map[string]any{
			"asin":          asin,
			"detailPageUrl": "https://www.primecart.com/dp/" + asin,
			"itemInfo": map[string]any{
				"title":      map[string]any{"displayValue": "Test Product " + asin},
				"byLineInfo": map[string]any{"brand": map[string]any{"displayValue": "TestBrand"}},
				"features":   map[string]any{"displayValues": []string{"Feature A", "Feature B"}},
			},
			"offers": map[string]any{
				"listings": []map[string]any{{
					"price":        map[string]any{"amount": 29.99, "currency": "USD"},
					"deliveryInfo": map[string]any{"isPrimeEligible": true},
					"availability": map[string]any{"message": "In Stock"},
				}},
			},
			"customerReviews": map[string]any{"starRating": 4.2, "count": 87},
		})
	}

	body, _ := json.Marshal(map[string]any{
		"itemsResult": map[string]any{"items": items},
	})
	return string(body)
}
