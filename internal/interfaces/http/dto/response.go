package dto

// ListResponse is the success envelope of every /api/db resource
type ListResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Count   int    `json:"count"`
	Source  string `json:"source,omitempty"`
}

// ErrorResponse is the failure envelope; Details carries the underlying error text
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewListResponse creates a success envelope. A nil data value is sent as an empty array.
func NewListResponse(data any, count int, source string) ListResponse {
	if data == nil {
		data = []any{}
	}
	return ListResponse{
		Success: true,
		Data:    data,
		Count:   count,
		Source:  source,
	}
}

// NewErrorResponse creates a failure envelope
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Success: false, Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	return resp
}
