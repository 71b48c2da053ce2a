package entity

import "time"

type MemoryRecord struct {
	MemoryId  string
	UserId    string
	Messages  []ChatTurn
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
