package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008
	ErrTimeout         = 1009

	// Search errors (2000-2999)
	ErrSearchProviderNotFound = 2000
	ErrSearchNoProviders      = 2001
	ErrSearchFailed           = 2002

	// Extraction errors (3000-3999)
	ErrExtractionFailed = 3000

	// Research errors (4000-4999)
	ErrResearchNotFound      = 4000
	ErrResearchInvalidInput  = 4001
	ErrResearchStorageFailed = 4002
	ErrResearchAnalysis      = 4003
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},
	ErrTimeout:         {ErrTimeout, http.StatusGatewayTimeout, "Request timed out"},

	// Search errors
	ErrSearchProviderNotFound: {ErrSearchProviderNotFound, http.StatusNotFound, "Search provider not found"},
	ErrSearchNoProviders:      {ErrSearchNoProviders, http.StatusServiceUnavailable, "No search provider available"},
	ErrSearchFailed:           {ErrSearchFailed, http.StatusBadGateway, "Search failed"},

	// Extraction errors
	ErrExtractionFailed: {ErrExtractionFailed, http.StatusUnprocessableEntity, "Content extraction failed"},

	// Research errors
	ErrResearchNotFound:      {ErrResearchNotFound, http.StatusNotFound, "Research session not found"},
	ErrResearchInvalidInput:  {ErrResearchInvalidInput, http.StatusBadRequest, "Invalid research input"},
	ErrResearchStorageFailed: {ErrResearchStorageFailed, http.StatusInternalServerError, "Research storage failed"},
	ErrResearchAnalysis:      {ErrResearchAnalysis, http.StatusBadGateway, "Market analysis failed"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
