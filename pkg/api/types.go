package api

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port         int
	Bind         string
	APIKey       string
	MaxBodyBytes int64
}

// StructSummary describes one catalog entry
type StructSummary struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Format string `json:"format"`
}

// FieldInfo describes one field of a struct definition
type FieldInfo struct {
	Format string `json:"format"`
	Name   string `json:"name,omitempty"`
	Size   int    `json:"size"`
}

// StructDetail is a catalog entry with its fields
type StructDetail struct {
	StructSummary
	Fields []FieldInfo `json:"fields"`
}

// DecodeRequest carries hex encoded binary data to decode
type DecodeRequest struct {
	Data  string `json:"data"`
	Count *int   `json:"count,omitempty"`
}

// DecodeResponse holds the decoded records
type DecodeResponse struct {
	Struct  string           `json:"struct"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

// EncodeResponse holds hex encoded binary data
type EncodeResponse struct {
	Struct string `json:"struct"`
	Data   string `json:"data"`
	Size   int    `json:"size"`
}

// RecordResponse is a stored record, both raw and decoded
type RecordResponse struct {
	ID     string         `json:"id"`
	Struct string         `json:"struct"`
	Data   string         `json:"data"`
	Record map[string]any `json:"record"`
}
