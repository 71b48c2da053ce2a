package dto

import "time"

// MemoryCommandRequest drives POST /api/memory. Args depend on the command:
// add takes content and metadata, search takes query and limit, delete takes memoryId.
type MemoryCommandRequest struct {
	Command string            `json:"command" validate:"required,oneof=add search delete"`
	Args    MemoryCommandArgs `json:"args"`
}

type MemoryCommandArgs struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Query    string                 `json:"query"`
	Limit    int                    `json:"limit" validate:"gte=0,lte=5"`
	MemoryId string                 `json:"memoryId"`
}

type MemoryResult struct {
	MemoryId  string                 `json:"memoryId"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	Score     float64                `json:"score"`
	Source    string                 `json:"source"`
}

type MemoryCommandResponse struct {
	Success bool           `json:"success"`
	Results []MemoryResult `json:"results,omitempty"`
}
