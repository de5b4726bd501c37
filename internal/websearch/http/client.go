package http

import (
	"net/http"
	"time"
)

// BrowserUserAgent is sent to scraped search pages and content hosts.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserHeaders returns the header set of a pt-BR desktop browser.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                BrowserUserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en;q=0.8",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
	}
}

// ApplyBrowserHeaders sets BrowserHeaders on req without overriding existing values.
func ApplyBrowserHeaders(req *http.Request) {
	for k, v := range BrowserHeaders() {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
}

// NewHTTPClient creates a new HTTP client with the specified timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}
