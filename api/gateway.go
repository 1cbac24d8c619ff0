package api

import (
	"SheetReports/internal/logger"
	"SheetReports/pkg/loadbalancer"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"
)

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

type upstreamKey struct{}

// createReverseProxy returns a reverse proxy handler for the given target URLs.
// Several comma separated targets are used in round-robin order.
func createReverseProxy(target string) (http.HandlerFunc, error) {
	balancer, err := loadbalancer.New(target)
	if err != nil {
		return nil, err
	}
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(pr.In.Context().Value(upstreamKey{}).(*url.URL))
			pr.SetXForwarded()
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Sheet name from a JSON body, for the audit trail
		var sheetName string
		if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			bodyBytes, err := io.ReadAll(r.Body)
			if err == nil && len(bodyBytes) > 0 {
				var bodyMap map[string]interface{}
				if err := json.Unmarshal(bodyBytes, &bodyMap); err == nil {
					sheetName, _ = bodyMap["sheetName"].(string)
				}
			}
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		logger.Audit(fmt.Sprintf("[Gateway] Incoming request: %s %s from %s sheet=%s", r.Method, r.URL.Path, extractClientIP(r), sheetName))

		upstream := balancer.Next()
		r = r.WithContext(context.WithValue(r.Context(), upstreamKey{}, upstream))
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		proxy.ServeHTTP(rw, r)

		var msg string
		if rw.statusCode >= 400 {
			msg = fmt.Sprintf("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", upstream, r.URL.Path, rw.statusCode, rw.errBody.String())
		} else {
			msg = fmt.Sprintf("[Gateway] Proxied to %s for %s, status %d, %d bytes", upstream, r.URL.Path, rw.statusCode, rw.written)
		}
		logger.Audit(msg)
	}, nil
}

// maxErrBody bounds how much of an error response is kept for the audit log.
const maxErrBody = 2048

// responseWriter wraps http.ResponseWriter to capture the status code, the
// response size and the start of error bodies. Report downloads are not buffered.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
	errBody    bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.errBody.Len() < maxErrBody {
		room := maxErrBody - rw.errBody.Len()
		if room > len(b) {
			room = len(b)
		}
		rw.errBody.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// NewGatewayMux builds the gateway handler. routes maps a path prefix such as
// "/reports/" to the upstream base URL.
func NewGatewayMux(routes map[string]string) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		h, err := createReverseProxy(routes[prefix])
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", prefix, err)
		}
		mux.HandleFunc(prefix, h)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] [Error] " + r.URL.Path + " from " + r.RemoteAddr + " (route not found)")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})
	return mux, nil
}

// StartGateway starts the API gateway server
func StartGateway(addr string, routes map[string]string) {
	mux, err := NewGatewayMux(routes)
	if err != nil {
		log.Fatalf("Gateway configuration failed: %v", err)
	}
	log.Println("API Gateway started on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
