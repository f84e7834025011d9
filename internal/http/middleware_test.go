package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		expected   string
	}{
		{
			name:       "IPv4 with port",
			remoteAddr: "192.168.1.1:54321",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 with port",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:       "no port",
			remoteAddr: "10.1.1.1",
			expected:   "10.1.1.1",
		},
		{
			name:       "forwarded header ignored without trusted proxy",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			expected:   "10.0.0.5",
		},
		{
			name:       "first forwarded address with trusted proxy",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.1 , 198.51.100.1"},
			trustProxy: true,
			expected:   "203.0.113.1",
		},
		{
			name:       "forwarded for wins over real ip",
			remoteAddr: "10.0.0.5:1234",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"X-Real-IP":       "192.168.1.100",
			},
			trustProxy: true,
			expected:   "203.0.113.1",
		},
		{
			name:       "real ip with trusted proxy",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Real-IP": "192.168.1.100"},
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "garbage header falls back to remote addr",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			trustProxy: true,
			expected:   "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			require.Equal(t, tt.expected, ExtractClientIP(r, tt.trustProxy))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var captured string
	handler := ClientIPMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "203.0.113.1", captured)
}
