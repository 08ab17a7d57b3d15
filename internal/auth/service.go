package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// TokenBytes is the entropy of an opaque session token before hex encoding.
const TokenBytes = 16

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	FindUserByName(ctx context.Context, userName string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
}

// Service implements credential handling and opaque-token sessions. A user
// has at most one live token; issuing a new one invalidates the previous
// value immediately.
type Service struct {
	users UserStore
	index TokenIndex
	cost  int
	log   *slog.Logger
}

func NewService(users UserStore, index TokenIndex, bcryptCost int, log *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, index: index, cost: bcryptCost, log: log}
}

// SignUp validates the credentials and creates the user. The returned user
// carries no token; the caller signs in separately.
func (s *Service) SignUp(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if creds.Password == "" {
		return nil, domain.Validation("password is required")
	}
	if creds.Password != creds.PasswordConfirmation {
		return nil, domain.Validation("password confirmation does not match")
	}
	if creds.Email == "" {
		return nil, domain.Validation("email is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return nil, domain.Internal(err)
	}

	return s.users.CreateUser(ctx, &models.User{
		Email:          creds.Email,
		HashedPassword: string(hashed),
		UserName:       creds.UserName,
		Picture:        creds.Picture,
	})
}

// SignIn verifies the password and issues a fresh opaque token, overwriting
// (and thereby revoking) any previously issued one.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.BadCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, domain.BadCredentials()
	}

	token, err := newToken()
	if err != nil {
		return nil, domain.Internal(err)
	}

	previous := user.Token
	user.Token = token
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if s.index != nil {
		if previous != "" {
			if err := s.index.Drop(ctx, previous); err != nil {
				s.log.Warn("token index drop failed", "err", err)
			}
		}
		if err := s.index.Put(ctx, token, user.ID); err != nil {
			s.log.Warn("token index put failed", "err", err)
		}
	}
	return user, nil
}

// SignOut clears the user's token; any request presenting the old value
// fails authentication afterwards.
func (s *Service) SignOut(ctx context.Context, user *models.User) error {
	previous := user.Token
	user.Token = ""
	if err := s.users.SaveUser(ctx, user); err != nil {
		return err
	}
	if s.index != nil && previous != "" {
		if err := s.index.Drop(ctx, previous); err != nil {
			s.log.Warn("token index drop failed", "err", err)
		}
	}
	return nil
}

// ChangePassword verifies the old password and stores a hash of the new
// one. The session token is left untouched.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if newPassword == "" {
		return domain.Validation("new password is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(oldPassword)); err != nil {
		return domain.BadCredentials()
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return domain.Internal(err)
	}
	user.HashedPassword = string(hashed)
	return s.users.SaveUser(ctx, user)
}

// UpdateProfile applies the allow-listed profile fields. Anything outside
// the patch type (email, hash, token, reference mirrors) cannot be reached
// through this path.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, patch models.ProfilePatch) (*models.User, error) {
	if patch.UserName != nil {
		user.UserName = *patch.UserName
	}
	if patch.Picture != nil {
		user.Picture = *patch.Picture
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyToken resolves a presented bearer token to its user. The token index
// is consulted first; on a miss the user table is queried directly. Either
// way the stored token is compared in constant time before the user is
// accepted.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, domain.BadCredentials()
	}

	var user *models.User
	if s.index != nil {
		userID, err := s.index.Lookup(ctx, token)
		if err != nil {
			s.log.Warn("token index lookup failed", "err", err)
		} else if userID != "" {
			if u, err := s.users.GetUserByID(ctx, userID); err == nil {
				user = u
			}
		}
	}
	if user == nil {
		u, err := s.users.GetUserByToken(ctx, token)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, domain.BadCredentials()
			}
			return nil, err
		}
		user = u
	}

	if subtle.ConstantTimeCompare([]byte(user.Token), []byte(token)) != 1 {
		return nil, domain.BadCredentials()
	}
	return user, nil
}

func newToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
