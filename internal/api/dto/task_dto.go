package dto

// ImportTaskQuery starts a HeadHunter import
type ImportTaskQuery struct {
	Query string   `form:"query" binding:"required"`
	Tiers []string `form:"tiers"`
}

// AnalysisTaskQuery starts a batch analysis
type AnalysisTaskQuery struct {
	Limit        *int     `form:"limit"`
	Analysis     []string `form:"analysis"`
	Tiers        []string `form:"tiers"`
	CustomPrompt string   `form:"custom_prompt"`
}

type ImportTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Query  string `json:"query"`
}

type AnalysisTaskResponse struct {
	TaskID   string   `json:"task_id"`
	Status   string   `json:"status"`
	Analysis []string `json:"analysis"`
}
