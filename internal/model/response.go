package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ConvertResponse is the body returned by both conversion endpoints.
type ConvertResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Files   ConvertedFiles `json:"files"`
}

type ConvertedFiles struct {
	Original  string `json:"original"`
	Converted string `json:"converted"`
}

type StorageStats struct {
	Incoming  DirectoryStats `json:"incoming"`
	Converted DirectoryStats `json:"converted"`
}

type DirectoryStats struct {
	FileCount      int    `json:"file_count"`
	TotalSize      int64  `json:"total_size"`
	TotalSizeHuman string `json:"total_size_human"`
}
