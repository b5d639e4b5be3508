// Package eligibility decides who may book restricted resources.
package eligibility

import (
	"context"

	"github.com/rs/zerolog"

	"rezerv/internal/models"
)

// BlocklistRepository reports requesters barred from booking anything.
type BlocklistRepository interface {
	IsBlocked(ctx context.Context, requesterID string) (bool, error)
}

// Service implements the admission engine's EligibilityChecker. A resource
// with a non-empty RestrictedTo list (e.g. residential-college-only places)
// only admits requesters whose type appears in the list.
type Service struct {
	blocklist BlocklistRepository
	logger    zerolog.Logger
}

// NewService creates an eligibility service. blocklist may be nil.
func NewService(blocklist BlocklistRepository, logger zerolog.Logger) *Service {
	return &Service{
		blocklist: blocklist,
		logger:    logger.With().Str("component", "eligibility").Logger(),
	}
}

// Eligible reports whether the requester type may book the resource.
func (s *Service) Eligible(ctx context.Context, requesterType string, resource *models.Resource) (bool, error) {
	if !resource.Policy.Restricted() {
		return true, nil
	}
	for _, allowed := range resource.Policy.RestrictedTo {
		if allowed == requesterType {
			return true, nil
		}
	}
	s.logger.Debug().
		Str("requester_type", requesterType).
		Str("resource", resource.Name).
		Msg("requester type not allowed for restricted resource")
	return false, nil
}

// CheckRequester reports whether the requester is blocked platform-wide.
func (s *Service) CheckRequester(ctx context.Context, requesterID string) (bool, error) {
	if s.blocklist == nil {
		return true, nil
	}
	blocked, err := s.blocklist.IsBlocked(ctx, requesterID)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}
