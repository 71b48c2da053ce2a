package service

import (
	"context"
	"testing"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	memstore "ai-tutor-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileService_Update(t *testing.T) {
	store := memstore.NewStore()
	age := 14
	store.PutUser(&entity.UserProfile{UserId: "u1", Email: "u1@example.com", Name: "Ada", Age: &age, Interests: []string{"chess"}})
	users := memstore.NewCachedUserRepository(store.Users(), 0)
	svc := NewProfileService(users, nil)
	ctx := context.Background()

	_, err := users.FindProfile(ctx, "u1")
	require.NoError(t, err)

	res, err := svc.Update(ctx, "u1", &dto.UpdateProfileRequest{
		Name:          "  Ada L. ",
		LearningStyle: strPtr(" visual "),
		Interests:     []string{"robots", " ", "space"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", res.Name)
	assert.Equal(t, "visual", *res.LearningStyle)
	assert.Equal(t, []string{"robots", "space"}, res.Interests)
	assert.Nil(t, res.DifficultyPreference)
	require.NotNil(t, res.Age)
	assert.Equal(t, 14, *res.Age)

	profile, err := users.FindProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "visual", *profile.LearningStyle)
}

func TestProfileService_Errors(t *testing.T) {
	svc := NewProfileService(memstore.NewStore().Users(), nil)

	_, err := svc.Update(context.Background(), "nobody", &dto.UpdateProfileRequest{Name: "X"})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = svc.Update(context.Background(), "nobody", &dto.UpdateProfileRequest{Name: "   "})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
