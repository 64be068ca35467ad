package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/models"
	"github.com/taskboard/taskboard/internal/services"
)

// UserRepository implements services.UserDirectory.
type UserRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewUserRepository(logger zerolog.Logger, pgPool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   email,
                   username,
                   avatar,
                   password,
                   role,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Email,
		user.Username,
		user.Avatar,
		user.Password,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return services.ErrUserAlreadyExists
		}

		r.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return err
	}

	r.logger.Debug().
		Str("user_id", user.ID).
		Msg("inserted user")
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{ID: id}

	const selectUserQuery = `
SELECT email,
       username,
       avatar,
       password,
       role,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	err := r.pgPool.QueryRow(
		ctx,
		selectUserQuery,
		id,
	).Scan(
		&user.Email,
		&user.Username,
		&user.Avatar,
		&user.Password,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrUserNotFound
		}

		r.logger.Error().
			Err(err).
			Str("user_id", id).
			Msg("failed to select user")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{Email: email}

	const selectUserByEmailQuery = `
SELECT id,
       username,
       avatar,
       password,
       role,
       created_at,
       updated_at
FROM users
WHERE email = $1
`
	err := r.pgPool.QueryRow(
		ctx,
		selectUserByEmailQuery,
		email,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Avatar,
		&user.Password,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrUserNotFound
		}

		r.logger.Error().
			Err(err).
			Str("email", email).
			Msg("failed to select user by email")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	const selectUsersByRoleQuery = `
SELECT id,
       email,
       username,
       avatar,
       created_at,
       updated_at
FROM users
WHERE role = $1
ORDER BY username
`
	rows, err := r.pgPool.Query(ctx, selectUsersByRoleQuery, role)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("role", role).
			Msg("failed to select users by role")
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{Role: role}
		err = rows.Scan(
			&user.ID,
			&user.Email,
			&user.Username,
			&user.Avatar,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan user")
			return nil, err
		}
		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	r.logger.Debug().
		Int("count", len(users)).
		Str("role", role).
		Msg("selected users by role")
	return users, nil
}
