package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

func seedUser(t *testing.T, m *MemoryStore, email string) *models.User {
	t.Helper()
	u, err := m.CreateUser(context.Background(), &models.User{Email: email, HashedPassword: "x"})
	require.NoError(t, err)
	return u
}

func seedTechnique(t *testing.T, m *MemoryStore, ownerID string) *models.Technique {
	t.Helper()
	tech, err := m.InsertTechnique(context.Background(), &models.Technique{Name: "n", OwnerID: ownerID})
	require.NoError(t, err)
	return tech
}

func TestMemoryStore_UserCRUD(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	u := seedUser(t, m, "a@example.com")
	assert.NotEmpty(t, u.ID)

	_, err := m.CreateUser(ctx, &models.User{Email: "a@example.com"})
	assert.True(t, domain.IsDuplicate(err))

	byEmail, err := m.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	u.Token = "tok"
	require.NoError(t, m.SaveUser(ctx, u))
	byToken, err := m.GetUserByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	_, err = m.GetUserByToken(ctx, "")
	assert.True(t, domain.IsNotFound(err))

	err = m.SaveUser(ctx, &models.User{ID: "ghost"})
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryStore_PushPullIdempotence(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	u := seedUser(t, m, "a@example.com")
	tech := seedTechnique(t, m, u.ID)

	// Pushing twice yields one entry.
	require.NoError(t, m.PushTechniqueSequence(ctx, tech.ID, "s1"))
	require.NoError(t, m.PushTechniqueSequence(ctx, tech.ID, "s1"))
	got, err := m.GetTechnique(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, got.SequenceRefs)

	// Pulling twice yields the same final set as pulling once.
	require.NoError(t, m.PullTechniqueSequence(ctx, tech.ID, "s1"))
	require.NoError(t, m.PullTechniqueSequence(ctx, tech.ID, "s1"))
	got, err = m.GetTechnique(ctx, tech.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SequenceRefs)

	// Mirror mutation against a missing document is a no-op, not an error.
	assert.NoError(t, m.PushTechniqueSequence(ctx, "missing", "s1"))
	assert.NoError(t, m.PullSequenceTechnique(ctx, "missing", "t1"))
	assert.NoError(t, m.PushUserSequence(ctx, "missing", "s1"))
}

func TestMemoryStore_UserRefOps(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, m, "a@example.com")

	require.NoError(t, m.PushUserTechnique(ctx, u.ID, "t1"))
	require.NoError(t, m.PushUserTechnique(ctx, u.ID, "t1"))
	require.NoError(t, m.PushUserSequence(ctx, u.ID, "s1"))

	got, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.TechniqueRefs)
	assert.Equal(t, []string{"s1"}, got.SequenceRefs)

	require.NoError(t, m.PullUserTechnique(ctx, u.ID, "t1"))
	require.NoError(t, m.PullUserTechnique(ctx, u.ID, "t1"))
	require.NoError(t, m.PullUserSequence(ctx, u.ID, "absent"))

	got, err = m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TechniqueRefs)
	assert.Equal(t, []string{"s1"}, got.SequenceRefs)
}

func TestMemoryStore_SavePreservesOwnerAndCreatedAt(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, m, "a@example.com")
	tech := seedTechnique(t, m, u.ID)

	tech.OwnerID = "someone-else"
	tech.Name = "renamed"
	require.NoError(t, m.SaveTechnique(ctx, tech))

	got, err := m.GetTechnique(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.OwnerID)
	assert.Equal(t, "renamed", got.Name)
}

func TestMemoryStore_ClonesOnRead(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, m, "a@example.com")
	require.NoError(t, m.PushUserTechnique(ctx, u.ID, "t1"))

	got, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	got.TechniqueRefs[0] = "mutated"

	again, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, again.TechniqueRefs)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, m, "a@example.com")
	tech := seedTechnique(t, m, u.ID)

	require.NoError(t, m.DeleteTechnique(ctx, tech.ID))
	require.NoError(t, m.DeleteTechnique(ctx, tech.ID))
	require.NoError(t, m.DeleteSequence(ctx, "never-existed"))
}
