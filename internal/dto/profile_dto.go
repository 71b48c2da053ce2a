package dto

// UpdateProfileRequest drives PUT /api/profile. Omitted optional fields keep their
// stored values; an empty interests array clears them.
type UpdateProfileRequest struct {
	Name                 string   `json:"name" validate:"required,max=255"`
	LearningStyle        *string  `json:"learningStyle" validate:"omitempty,max=64"`
	DifficultyPreference *string  `json:"difficultyPreference" validate:"omitempty,max=64"`
	Interests            []string `json:"interests" validate:"omitempty,max=50,dive,required,max=100"`
	Age                  *int     `json:"age" validate:"omitempty,gte=1,lte=120"`
}

type ProfileResponse struct {
	UserId               string   `json:"userId"`
	Email                string   `json:"email"`
	Name                 string   `json:"name"`
	LearningStyle        *string  `json:"learningStyle"`
	DifficultyPreference *string  `json:"difficultyPreference"`
	Interests            []string `json:"interests"`
	Age                  *int     `json:"age"`
}
