package instagram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/ig-profile-proxy/internal/testutil"
	"github.com/Sternrassler/ig-profile-proxy/pkg/profile"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
		},
		{
			name:     "empty base url",
			config:   Config{Timeout: time.Second},
			errorMsg: "base url is required",
		},
		{
			name:     "zero timeout",
			config:   Config{BaseURL: DefaultBaseURL},
			errorMsg: "timeout must be positive (got 0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg == "" {
				require.NoError(t, err)
				assert.NotNil(t, c)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errorMsg, err.Error())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://i.instagram.com", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestProfileURL(t *testing.T) {
	c := newTestClient(t, DefaultBaseURL)
	assert.Equal(t,
		"https://i.instagram.com/api/v1/users/web_profile_info/?username=natgeo",
		c.ProfileURL("natgeo"))
}

func TestFetchProfile_SendsFixedHeaders(t *testing.T) {
	mock := testutil.NewMockInstagram()
	defer mock.Close()
	mock.SetResponse("alice", testutil.NewProfileResponse("alice", 1))

	c := newTestClient(t, mock.URL())
	_, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)

	h := mock.GetLastRequestHeader()
	assert.Equal(t, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36", h.Get("User-Agent"))
	assert.Equal(t, "936619743392459", h.Get("X-Ig-App-Id"))
	assert.Equal(t, "*/*", h.Get("Accept"))
	assert.Equal(t, "en-US,en;q=0.9", h.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate, br", h.Get("Accept-Encoding"))
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestFetchProfile_Classification(t *testing.T) {
	tests := []struct {
		name       string
		response   testutil.MockResponse
		wantKind   profile.Kind
		wantStatus int
	}{
		{
			name:     "public profile",
			response: testutil.NewProfileResponse("alice", 3),
		},
		{
			name:       "not found",
			response:   testutil.NewNotFoundResponse(),
			wantKind:   profile.KindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rate limited upstream",
			response:   testutil.NewRateLimitResponse(),
			wantKind:   profile.KindUpstreamUnavailable,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server error",
			response:   testutil.NewServerErrorResponse(),
			wantKind:   profile.KindUpstreamUnavailable,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed body",
			response:   testutil.NewMalformedResponse(),
			wantKind:   profile.KindMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing user object",
			response:   testutil.NewMissingUserResponse(),
			wantKind:   profile.KindNotFound,
			wantStatus: http.StatusOK,
		},
		{
			name:       "private profile",
			response:   testutil.NewPrivateResponse("alice"),
			wantKind:   profile.KindPrivate,
			wantStatus: http.StatusOK,
		},
		{
			name:     "gzip encoded profile",
			response: func() testutil.MockResponse { r := testutil.NewProfileResponse("alice", 2); r.Gzip = true; return r }(),
		},
		{
			name: "unsupported encoding",
			response: testutil.MockResponse{
				StatusCode: http.StatusOK,
				Body:       "{}",
				Headers:    map[string]string{"Content-Encoding": "zstd"},
			},
			wantKind:   profile.KindMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name: "corrupt gzip",
			response: testutil.MockResponse{
				StatusCode: http.StatusOK,
				Body:       "definitely not gzip",
				Headers:    map[string]string{"Content-Encoding": "gzip"},
			},
			wantKind:   profile.KindMalformedResponse,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockInstagram()
			defer mock.Close()
			mock.SetResponse("alice", tt.response)

			c := newTestClient(t, mock.URL())
			user, err := c.FetchProfile(context.Background(), "alice")

			assert.Equal(t, 1, mock.GetRequestCount(), "exactly one upstream attempt")

			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, "alice", user.Username)
				return
			}

			require.Error(t, err)
			assert.Nil(t, user)

			var pe *profile.Error
			require.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, tt.wantStatus, pe.StatusCode)
			assert.Equal(t, "alice", pe.Username)
		})
	}
}

func TestFetchProfile_EncodedBodies(t *testing.T) {
	payload := []byte(`{"data":{"user":{"username":"enc","is_private":false}}}`)

	var zlibBody bytes.Buffer
	zw := zlib.NewWriter(&zlibBody)
	_, _ = zw.Write(payload)
	_ = zw.Close()

	var brBody bytes.Buffer
	bw := brotli.NewWriter(&brBody)
	_, _ = bw.Write(payload)
	_ = bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "identity", encoding: "", body: payload},
		{name: "deflate zlib", encoding: "deflate", body: zlibBody.Bytes()},
		{name: "brotli", encoding: "br", body: brBody.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			user, err := c.FetchProfile(context.Background(), "enc")
			require.NoError(t, err)
			assert.Equal(t, "enc", user.Username)
		})
	}
}

func TestFetchProfile_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	_, err := c.FetchProfile(context.Background(), "alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrUpstreamUnavailable), "got %v", err)
}

func TestFetchProfile_ContextCancellation(t *testing.T) {
	mock := testutil.NewMockInstagram()
	defer mock.Close()
	slow := testutil.NewProfileResponse("alice", 1)
	slow.Delay = time.Second
	mock.SetResponse("alice", slow)

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	user, err := c.FetchProfile(ctx, "alice")

	assert.Nil(t, user)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Equal(t, profile.KindInternal, profile.KindOf(err), "context errors are not upstream-classified")
	assert.Less(t, time.Since(start), 900*time.Millisecond, "request should be aborted")
}

func TestFetchProfile_ClientTimeout(t *testing.T) {
	mock := testutil.NewMockInstagram()
	defer mock.Close()
	slow := testutil.NewProfileResponse("alice", 1)
	slow.Delay = time.Second
	mock.SetResponse("alice", slow)

	c, err := New(Config{BaseURL: mock.URL(), Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.FetchProfile(context.Background(), "alice")
	assert.True(t, errors.Is(err, profile.ErrUpstreamUnavailable), "got %v", err)
}

func TestFetchProfile_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"user":{"username":"big","biography":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", MaxBodySize)))
		_, _ = w.Write([]byte(`"}}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.FetchProfile(context.Background(), "big")
	assert.True(t, errors.Is(err, profile.ErrMalformedResponse), "got %v", err)
}

func TestIsZlibHeader(t *testing.T) {
	assert.True(t, isZlibHeader([]byte{0x78, 0x9c}))
	assert.True(t, isZlibHeader([]byte{0x78, 0x01}))
	assert.False(t, isZlibHeader([]byte{0x1f, 0x8b}))
	assert.False(t, isZlibHeader([]byte{0x78}))
}
