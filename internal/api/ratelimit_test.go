package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	newReq := func(remoteAddr string, headers map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remoteAddr
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	tests := []struct {
		name       string
		req        *http.Request
		trustProxy bool
		want       string
	}{
		{
			name: "remote addr with port",
			req:  newReq("10.0.0.7:51234", nil),
			want: "10.0.0.7",
		},
		{
			name:       "x-real-ip honored behind proxy",
			req:        newReq("127.0.0.1:80", map[string]string{"X-Real-IP": "203.0.113.9"}),
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for first hop",
			req:        newReq("127.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"}),
			trustProxy: true,
			want:       "198.51.100.4",
		},
		{
			name:       "garbage header falls back to remote addr",
			req:        newReq("10.0.0.7:51234", map[string]string{"X-Real-IP": "not-an-ip"}),
			trustProxy: true,
			want:       "10.0.0.7",
		},
		{
			name: "proxy headers ignored when not trusted",
			req:  newReq("10.0.0.7:51234", map[string]string{"X-Real-IP": "203.0.113.9"}),
			want: "10.0.0.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clientIP(tt.req, tt.trustProxy))
		})
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(0.001, 2)

	// Each IP gets its own bucket.
	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))

	assert.True(t, rl.allow("2.2.2.2"))
}
