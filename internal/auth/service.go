package auth

import (
	"context"
	"fmt"
	"log/slog"

	"dealpulse/internal/middleware"
)

// Service validates presented bearer tokens against the configured hash.
// It implements middleware.AuthService. The deployment model is a single
// shared operator token; every authenticated caller acts as the operator.
type Service struct {
	tokenHash string
	logger    *slog.Logger
}

// NewService creates a token validation service. The hash is checked for
// shape here so misconfiguration surfaces at startup.
func NewService(tokenHash string, logger *slog.Logger) (*Service, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("token hash is required")
	}
	if err := CheckEncodedHash(tokenHash); err != nil {
		return nil, fmt.Errorf("configured token hash: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		tokenHash: tokenHash,
		logger:    logger.With(slog.String("component", "auth")),
	}, nil
}

// ValidateToken implements middleware.AuthService.
func (s *Service) ValidateToken(ctx context.Context, token string) (*middleware.UserInfo, error) {
	ok, err := VerifySecret(token, s.tokenHash)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "bearer token rejected")
		return nil, fmt.Errorf("token does not match")
	}

	return &middleware.UserInfo{
		ID:    "operator",
		Name:  "API Operator",
		Roles: []string{"operator"},
	}, nil
}
