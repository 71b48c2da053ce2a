package service

import (
	"context"
	"strings"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
)

type IProfileService interface {
	Update(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type profileService struct {
	users  contract.UserRepository
	logger logger.ILogger
}

func NewProfileService(users contract.UserRepository, log logger.ILogger) IProfileService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &profileService{users: users, logger: log}
}

func (s *profileService) Update(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.New(apperror.KindValidation, "name is required")
	}

	update := entity.ProfileUpdate{
		Name:                 &name,
		LearningStyle:        trimmed(req.LearningStyle),
		DifficultyPreference: trimmed(req.DifficultyPreference),
		Age:                  req.Age,
	}
	if req.Interests != nil {
		update.Interests = make([]string, 0, len(req.Interests))
		for _, in := range req.Interests {
			if in = strings.TrimSpace(in); in != "" {
				update.Interests = append(update.Interests, in)
			}
		}
	}

	profile, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "failed to update profile")
	}
	if profile == nil {
		return nil, apperror.New(apperror.KindNotFound, "user not found")
	}

	s.logger.Info("PROFILE", "Profile updated", map[string]interface{}{"user_id": userID})
	return &dto.ProfileResponse{
		UserId:               profile.UserId,
		Email:                profile.Email,
		Name:                 profile.Name,
		LearningStyle:        profile.LearningStyle,
		DifficultyPreference: profile.DifficultyPreference,
		Interests:            profile.Interests,
		Age:                  profile.Age,
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
