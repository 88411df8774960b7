package observability

import (
	"net"
	"net/http"
	"strings"
)

// ClientInfo describes the origin of a request for operational events.
type ClientInfo struct {
	IP        string
	RequestID string
	DeviceID  string
	UserAgent string
}

func ClientFromRequest(r *http.Request) ClientInfo {
	return ClientInfo{
		IP:        IPFromRequest(r),
		RequestID: r.Header.Get("X-Request-Id"),
		DeviceID:  r.Header.Get("X-Device-Id"),
		UserAgent: r.UserAgent(),
	}
}

// IPFromRequest prefers the first X-Forwarded-For hop over RemoteAddr.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
