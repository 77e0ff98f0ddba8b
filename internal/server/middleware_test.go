package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientID(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"forwarded header wins", "10.0.0.1:5000", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"ipv4 host port", "192.0.2.7:61234", "", "192.0.2.7"},
		{"ipv6 host port", "[::1]:61234", "", "::1"},
		{"ipv6 full host port", "[2001:db8::42]:8080", "", "2001:db8::42"},
		{"bare host", "192.0.2.7", "", "192.0.2.7"},
		{"empty remote", "", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientID(r))
		})
	}
}
