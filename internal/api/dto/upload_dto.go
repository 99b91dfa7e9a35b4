package dto

import "github.com/cuongbtq/career-assistant/internal/chatimport"

// ChatImportResponse reports what an uploaded chat export produced
type ChatImportResponse struct {
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"size_bytes"`
	Provider   string `json:"provider"`
	Total      int    `json:"total"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Empty      int    `json:"empty"`
	Messages   int    `json:"messages"`
}

func NewChatImportResponse(filename string, size int64, res *chatimport.Result) ChatImportResponse {
	return ChatImportResponse{
		Filename:   filename,
		SizeBytes:  size,
		Provider:   string(res.Provider),
		Total:      res.Total,
		Imported:   res.Imported,
		Duplicates: res.Duplicates,
		Empty:      res.Empty,
		Messages:   res.Messages,
	}
}
