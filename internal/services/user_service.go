package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/authz"
	"github.com/taskboard/taskboard/internal/models"
)

type userServiceImpl struct {
	logger    zerolog.Logger
	directory UserDirectory
}

func NewUserService(
	logger zerolog.Logger,
	directory UserDirectory,
) UserService {
	return &userServiceImpl{
		logger:    logger,
		directory: directory,
	}
}

func (s *userServiceImpl) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to resolve user")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) UsersByRole(ctx context.Context, p authz.Principal, role string) ([]*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, &ValidationError{Fields: map[string]string{
			"role": "role must be one of: user, manager, admin",
		}}
	}

	if d := authz.CanListUsersByRole(p, role); !d.Allowed {
		s.logger.Warn().
			Str("user_id", p.ID).
			Str("role", role).
			Str("reason", d.Reason).
			Msg("role query denied")
		return nil, newAccessDenied(d)
	}

	users, err := s.directory.ListByRole(ctx, role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("role", role).
			Msg("failed to list users by role")
		return nil, err
	}

	s.logger.Debug().
		Int("count", len(users)).
		Str("role", role).
		Msg("listed users by role")
	return users, nil
}
