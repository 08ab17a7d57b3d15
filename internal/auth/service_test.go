package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
	"github.com/dojoflow/backend/internal/store"
)

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	// MinCost keeps the hashing fast in tests.
	return NewService(mem, nil, bcrypt.MinCost, nil), mem
}

func signUp(t *testing.T, svc *Service, email, password string) *models.User {
	t.Helper()
	u, err := svc.SignUp(context.Background(), models.Credentials{
		Email:                email,
		Password:             password,
		PasswordConfirmation: password,
	})
	require.NoError(t, err)
	return u
}

func TestSignUp(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, models.Credentials{
		Email:                "a@example.com",
		Password:             "secret",
		PasswordConfirmation: "secret",
		UserName:             "aiko",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "aiko", u.UserName)
	assert.Empty(t, u.Token)
	assert.NotEqual(t, "secret", u.HashedPassword)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		creds models.Credentials
	}{
		{"empty password", models.Credentials{Email: "a@example.com"}},
		{"mismatched confirmation", models.Credentials{
			Email: "a@example.com", Password: "one", PasswordConfirmation: "two",
		}},
		{"missing email", models.Credentials{Password: "p", PasswordConfirmation: "p"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.creds)
			require.Error(t, err)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	signUp(t, svc, "a@example.com", "secret")

	_, err := svc.SignUp(context.Background(), models.Credentials{
		Email: "a@example.com", Password: "other", PasswordConfirmation: "other",
	})
	require.Error(t, err)
	assert.True(t, domain.IsDuplicate(err))
}

func TestSignIn_IssuesToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "a@example.com", "secret")

	u, err := svc.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	require.Len(t, u.Token, TokenBytes*2) // hex-encoded
}

func TestSignIn_ReissueInvalidatesOldToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "a@example.com", "secret")

	first, err := svc.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	second, err := svc.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = svc.VerifyToken(ctx, first.Token)
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))

	u, err := svc.VerifyToken(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.ID, u.ID)
}

func TestSignIn_WrongPassword(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()
	signUp(t, svc, "a@example.com", "secret")

	_, err := svc.SignIn(ctx, "a@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))

	// Token unchanged from before the call.
	u, err := mem.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, u.Token)
}

func TestSignIn_UnknownEmail(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SignIn(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))
}

func TestSignOut_InvalidatesSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "a@example.com", "secret")

	u, err := svc.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	token := u.Token

	require.NoError(t, svc.SignOut(ctx, u))
	assert.Empty(t, u.Token)

	_, err = svc.VerifyToken(ctx, token)
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))
}

func TestVerifyToken_EmptyToken(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.VerifyToken(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	signUp(t, svc, "a@example.com", "secret")

	u, err := svc.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	token := u.Token

	require.NoError(t, svc.ChangePassword(ctx, u, "secret", "newsecret"))

	// Token survives a password change.
	verified, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.ID)

	_, err = svc.SignIn(ctx, "a@example.com", "secret")
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))
	_, err = svc.SignIn(ctx, "a@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestChangePassword_Failures(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u := signUp(t, svc, "a@example.com", "secret")

	err := svc.ChangePassword(ctx, u, "secret", "")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	err = svc.ChangePassword(ctx, u, "wrong", "next")
	assert.Equal(t, domain.CodeBadCredentials, domain.CodeOf(err))
}

func TestUpdateProfile_AllowList(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()
	u := signUp(t, svc, "a@example.com", "secret")

	name := "tori"
	pic := "https://example.com/p.png"
	updated, err := svc.UpdateProfile(ctx, u, models.ProfilePatch{UserName: &name, Picture: &pic})
	require.NoError(t, err)
	assert.Equal(t, "tori", updated.UserName)
	assert.Equal(t, pic, updated.Picture)

	// Email and hash are unreachable through the profile path.
	stored, err := mem.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", stored.Email)
	assert.Equal(t, u.HashedPassword, stored.HashedPassword)
}

func TestSanitized_HidesToken(t *testing.T) {
	u := &models.User{ID: "u1", Token: "tok"}
	assert.Empty(t, u.Sanitized().Token)
	assert.Equal(t, "tok", u.Token)
}
