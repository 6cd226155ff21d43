// Package testutil provides testing utilities for the profile proxy.
package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ProfileInfoPath mirrors the upstream endpoint path served by MockInstagram.
const ProfileInfoPath = "/api/v1/users/web_profile_info/"

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
	Gzip       bool
}

// MockInstagram is a configurable mock of the profile-info endpoint.
// Responses are keyed by the username query parameter.
type MockInstagram struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responses map[string]MockResponse

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastUsername      string
}

// NewMockInstagram creates a new mock upstream server.
func NewMockInstagram() *MockInstagram {
	mock := &MockInstagram{
		responses: make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastUsername = username
		resp, exists := mock.responses[username]
		mock.mu.Unlock()

		if r.URL.Path != ProfileInfoPath {
			http.NotFound(w, r)
			return
		}

		if !exists {
			resp = NewNotFoundResponse()
		}
		mock.write(w, r, resp)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockInstagram) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockInstagram) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockInstagram) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastUsername = ""
}

// SetResponse configures the response for a username.
func (m *MockInstagram) SetResponse(username string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[username] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockInstagram) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockInstagram) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func (m *MockInstagram) write(w http.ResponseWriter, r *http.Request, resp MockResponse) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	body := []byte(resp.Body)
	if resp.Gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(body)
		_ = zw.Close()
		body = buf.Bytes()
		w.Header().Set("Content-Encoding", "gzip")
	}

	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// NewProfileResponse creates a 200 OK response for a public profile with
// the given number of timeline edges. Edge i is a video when i is listed
// in videos, otherwise an image with display_url "https://cdn.example.com/<username>/<i>.jpg".
func NewProfileResponse(username string, edges int, videos ...int) MockResponse {
	isVideo := make(map[int]bool, len(videos))
	for _, v := range videos {
		isVideo[v] = true
	}

	nodes := make([]string, 0, edges)
	for i := 0; i < edges; i++ {
		typename := "GraphImage"
		if isVideo[i] {
			typename = "GraphVideo"
		}
		nodes = append(nodes, fmt.Sprintf(
			`{"node":{"__typename":%q,"display_url":"https://cdn.example.com/%s/%d.jpg","is_video":%t}}`,
			typename, username, i, isVideo[i]))
	}

	body := fmt.Sprintf(`{"data":{"user":{`+
		`"username":%q,"full_name":"Test %s","biography":"bio of %s",`+
		`"profile_pic_url":"https://cdn.example.com/%s/pic.jpg",`+
		`"profile_pic_url_hd":"https://cdn.example.com/%s/pic_hd.jpg",`+
		`"is_private":false,`+
		`"edge_followed_by":{"count":1200},"edge_follow":{"count":34},`+
		`"edge_owner_to_timeline_media":{"count":%d,"edges":[%s]}}},"status":"ok"}`,
		username, username, username, username, username, edges, strings.Join(nodes, ","))

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewPrivateResponse creates a 200 OK response for a private profile.
func NewPrivateResponse(username string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"data":{"user":{"username":%q,"is_private":true}},"status":"ok"}`, username),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMissingUserResponse creates a 200 OK response without a user object.
func NewMissingUserResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":{"user":null},"status":"ok"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"User not found","status":"fail"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Please wait a few minutes before you try again.","status":"fail"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewMalformedResponse creates a 200 OK response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<!DOCTYPE html><html><body>Login</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}
