package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type ChatTranscriptMapper struct{}

func NewChatTranscriptMapper() *ChatTranscriptMapper {
	return &ChatTranscriptMapper{}
}

func (m *ChatTranscriptMapper) ToEntity(c *model.ChatTranscript) *entity.ChatTranscript {
	if c == nil {
		return nil
	}
	return &entity.ChatTranscript{
		Id:        c.Id,
		UserId:    c.UserId,
		RunId:     c.RunId,
		Message:   c.Message,
		Response:  c.Response,
		Metadata:  fromJSON(c.Metadata),
		CreatedAt: c.CreatedAt,
	}
}

func (m *ChatTranscriptMapper) ToModel(c *entity.ChatTranscript) *model.ChatTranscript {
	if c == nil {
		return nil
	}
	return &model.ChatTranscript{
		Id:        c.Id,
		UserId:    c.UserId,
		RunId:     c.RunId,
		Message:   c.Message,
		Response:  c.Response,
		Metadata:  toJSON(c.Metadata),
		CreatedAt: c.CreatedAt,
	}
}
