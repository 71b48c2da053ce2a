package entity

const (
	DefaultLearningStyle        = "general"
	DefaultDifficultyPreference = "moderate"
	DefaultInterests            = "general topics"
)

// UserProfile is read from the users table; optional fields are nil or empty.
type UserProfile struct {
	UserId               string
	Email                string
	Name                 string
	LearningStyle        *string
	DifficultyPreference *string
	Interests            []string
	Age                  *int
}

// ProfileUpdate carries the fields a user may change; nil leaves a field as is.
type ProfileUpdate struct {
	Name                 *string
	LearningStyle        *string
	DifficultyPreference *string
	Interests            []string
	Age                  *int
}

// Apply writes the set fields of u onto p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.LearningStyle != nil {
		v := *u.LearningStyle
		p.LearningStyle = &v
	}
	if u.DifficultyPreference != nil {
		v := *u.DifficultyPreference
		p.DifficultyPreference = &v
	}
	if u.Interests != nil {
		p.Interests = append([]string(nil), u.Interests...)
	}
	if u.Age != nil {
		v := *u.Age
		p.Age = &v
	}
}
