package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/authz"
	"github.com/taskboard/taskboard/internal/models"
)

// tokenClaims is what a signed access token carries: the user id as the
// subject plus the role, so most requests never need a directory round trip
// to authorize.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type authServiceImpl struct {
	logger        zerolog.Logger
	directory     UserDirectory
	jwtIssuer     string
	jwtSigningKey []byte
	jwtTokenTTL   time.Duration
}

func NewAuthService(
	logger zerolog.Logger,
	directory UserDirectory,
	jwtIssuer string,
	jwtSigningKey []byte,
	jwtTokenTTL time.Duration,
) AuthService {
	return &authServiceImpl{
		logger:        logger,
		directory:     directory,
		jwtIssuer:     jwtIssuer,
		jwtSigningKey: jwtSigningKey,
		jwtTokenTTL:   jwtTokenTTL,
	}
}

func (s *authServiceImpl) SignUp(ctx context.Context, params SignUpParams) (*models.User, error) {
	role := params.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(role) {
		return nil, &ValidationError{Fields: map[string]string{
			"role": "role must be one of: user, manager, admin",
		}}
	}

	now := time.Now()
	user := &models.User{
		Email:     params.Email,
		Username:  params.Username,
		Avatar:    "https://robohash.org/" + params.Username,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.Password = passwordHash

	err = s.directory.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			s.logger.Warn().
				Str("email", user.Email).
				Msg("user with this email or username already exists")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("registered user")
	return user, nil
}

func (s *authServiceImpl) SignIn(ctx context.Context, params SignInParams) (*SignInResult, error) {
	user, err := s.directory.GetByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Warn().
				Str("email", params.Email).
				Msg("user not found")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Str("email", params.Email).
			Msg("failed to select user by email")
		return nil, err
	}

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("passwords do not match")
		return nil, ErrUserPasswordMismatch
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("signed in")
	return &SignInResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authServiceImpl) ParseToken(token string) (authz.Principal, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSigningKey, nil
		},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := t.Claims.(*tokenClaims)
	if !ok {
		return authz.Principal{}, errors.New("failed to parse token claims")
	}
	if claims.Subject == "" || !models.IsValidRole(claims.Role) {
		return authz.Principal{}, errors.New("token carries no usable principal")
	}

	return authz.Principal{
		ID:   claims.Subject,
		Role: claims.Role,
	}, nil
}

func (s *authServiceImpl) generateToken(user *models.User) (string, time.Time, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.jwtTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenUUID.String(),
			Issuer:    s.jwtIssuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: user.Role,
	})

	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
