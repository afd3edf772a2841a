package service

import (
	"context"
	"testing"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommunity(t *testing.T) {
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		svc := NewCommunityService(noopCommunityRepo())

		_, err := svc.CreateCommunity(ctx, CreateCommunityInput{CreatorID: 1, Description: "d", Category: models.CategoryTechnology})
		assertValidationError(t, err)

		_, err = svc.CreateCommunity(ctx, CreateCommunityInput{CreatorID: 1, Name: "gophers", Category: models.CategoryTechnology})
		assertValidationError(t, err)

		_, err = svc.CreateCommunity(ctx, CreateCommunityInput{CreatorID: 1, Name: "gophers", Description: "d", Category: "bogus"})
		assertValidationError(t, err)
	})

	t.Run("Tags Normalized And Deduped", func(t *testing.T) {
		var created *models.Community
		communities := noopCommunityRepo()
		communities.createFn = func(_ context.Context, c *models.Community) error {
			created = c
			c.ID = 7
			return nil
		}
		svc := NewCommunityService(communities)

		_, err := svc.CreateCommunity(ctx, CreateCommunityInput{
			CreatorID:   1,
			Name:        " gophers ",
			Description: "all things go",
			Category:    models.CategoryTechnology,
			Tags:        []string{"Go", " go ", "", "backend"},
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "gophers", created.Name)
		require.Len(t, created.Tags, 2)
		assert.Equal(t, "go", created.Tags[0].Tag)
		assert.Equal(t, "backend", created.Tags[1].Tag)
		assert.True(t, created.IsActive)
	})
}

func TestJoinCommunity_InactiveRejected(t *testing.T) {
	communities := noopCommunityRepo()
	communities.getByIDFn = func(_ context.Context, id uint) (*models.Community, error) {
		return &models.Community{ID: id, IsActive: false}, nil
	}
	svc := NewCommunityService(communities)

	assertValidationError(t, svc.Join(context.Background(), 5, 1))
}

func TestLeaveCommunity_CreatorCannotLeave(t *testing.T) {
	communities := noopCommunityRepo()
	communities.getByIDFn = func(_ context.Context, id uint) (*models.Community, error) {
		return &models.Community{ID: id, CreatorID: 1, IsActive: true}, nil
	}
	svc := NewCommunityService(communities)

	assertValidationError(t, svc.Leave(context.Background(), 5, 1))

	var left bool
	communities.leaveFn = func(_ context.Context, _, _ uint) error {
		left = true
		return nil
	}
	require.NoError(t, svc.Leave(context.Background(), 5, 2))
	assert.True(t, left)
}
