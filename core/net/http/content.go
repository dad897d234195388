package http

// Common Content-Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)
