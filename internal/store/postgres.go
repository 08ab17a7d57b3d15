package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// PostgresStore handles user CRUD against PostgreSQL. The techniques and
// sequences columns are the user-side mirror arrays; push/pull on them is
// idempotent at the SQL level so re-applying a half-finished reconciliation
// is always safe.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email           VARCHAR(255) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			user_name       VARCHAR(100) NOT NULL DEFAULT '',
			picture         TEXT         NOT NULL DEFAULT '',
			techniques      TEXT[]       NOT NULL DEFAULT '{}',
			sequences       TEXT[]       NOT NULL DEFAULT '{}',
			token           TEXT         NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

const userColumns = `id, email, hashed_password, user_name, picture, techniques, sequences, token, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.UserName, &u.Picture,
		&u.TechniqueRefs, &u.SequenceRefs, &u.Token, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, hashed_password, user_name, picture)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		u.Email, u.HashedPassword, u.UserName, u.Picture,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.Duplicate("email %s already registered", u.Email)
		}
		return nil, domain.Internal(err)
	}
	return created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapUserErr(err, id)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapUserErr(err, email)
	}
	return u, nil
}

// GetUserByToken resolves a presented session token to its user. Empty
// tokens never match: a signed-out user has token = ''.
func (s *PostgresStore) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE token = $1 AND token <> ''`, token))
	if err != nil {
		return nil, mapUserErr(err, "by-token")
	}
	return u, nil
}

// FindUserByName returns the first user with the given display name.
func (s *PostgresStore) FindUserByName(ctx context.Context, userName string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_name = $1 LIMIT 1`, userName))
	if err != nil {
		return nil, mapUserErr(err, userName)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.Internal(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err)
	}
	return users, nil
}

// SaveUser overwrites every mutable field of the row (idempotent full
// overwrite per the store contract).
func (s *PostgresStore) SaveUser(ctx context.Context, u *models.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET email = $2, hashed_password = $3, user_name = $4, picture = $5,
		     techniques = $6, sequences = $7, token = $8, updated_at = NOW()
		 WHERE id = $1`,
		u.ID, u.Email, u.HashedPassword, u.UserName, u.Picture,
		u.TechniqueRefs, u.SequenceRefs, u.Token,
	)
	if err != nil {
		return domain.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user", u.ID)
	}
	return nil
}

// PushUserTechnique adds a technique id to the user's mirror array. Pushing
// an already-present id is a no-op; so is pushing onto a missing user.
func (s *PostgresStore) PushUserTechnique(ctx context.Context, userID, techniqueID string) error {
	return s.pushRef(ctx, "techniques", userID, techniqueID)
}

// PullUserTechnique removes a technique id from the user's mirror array.
// Pulling an absent id is a no-op.
func (s *PostgresStore) PullUserTechnique(ctx context.Context, userID, techniqueID string) error {
	return s.pullRef(ctx, "techniques", userID, techniqueID)
}

// PushUserSequence adds a sequence id to the user's mirror array.
func (s *PostgresStore) PushUserSequence(ctx context.Context, userID, sequenceID string) error {
	return s.pushRef(ctx, "sequences", userID, sequenceID)
}

// PullUserSequence removes a sequence id from the user's mirror array.
func (s *PostgresStore) PullUserSequence(ctx context.Context, userID, sequenceID string) error {
	return s.pullRef(ctx, "sequences", userID, sequenceID)
}

func (s *PostgresStore) pushRef(ctx context.Context, column, userID, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET `+column+` = array_append(`+column+`, $2), updated_at = NOW()
		 WHERE id = $1 AND NOT ($2 = ANY(`+column+`))`,
		userID, ref,
	)
	if err != nil {
		return domain.Internal(err)
	}
	return nil
}

func (s *PostgresStore) pullRef(ctx context.Context, column, userID, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET `+column+` = array_remove(`+column+`, $2), updated_at = NOW()
		 WHERE id = $1`,
		userID, ref,
	)
	if err != nil {
		return domain.Internal(err)
	}
	return nil
}

func mapUserErr(err error, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("user", key)
	}
	return domain.Internal(err)
}
