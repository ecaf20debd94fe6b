package http

// APIResponse is the envelope used by the catalog, health and error responses.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_ONEOF"`
	Field   string                 `json:"field,omitempty" example:"range"`
	Message string                 `json:"message,omitempty" example:"range must be one of: 1y, 3y, 5y, 10y, max"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
