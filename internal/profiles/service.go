package profiles

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/types"
)

// Service manages the caller's own profile.
type Service interface {
	Ensure(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateInput) (*models.Profile, error)
}

// UpdateInput distinguishes an absent field from an explicit null.
type UpdateInput struct {
	Name      types.Nullable[string] `json:"name"`
	AvatarURL types.Nullable[string] `json:"avatar_url"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profiles repository required")
	}
	return &service{repo: repo}, nil
}

// Ensure makes sure a profile row exists for an authenticated subject.
func (s *service) Ensure(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	profile := &models.Profile{ID: userID, Email: strings.ToLower(strings.TrimSpace(email))}
	if err := s.repo.Ensure(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure profile")
	}
	return profile, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateInput) (*models.Profile, error) {
	updates := map[string]any{}
	if input.Name.Set {
		if input.Name.IsNull() {
			updates["name"] = nil
		} else {
			name := strings.TrimSpace(*input.Name.Value)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
			}
			updates["name"] = name
		}
	}
	if input.AvatarURL.Set {
		if input.AvatarURL.IsNull() {
			updates["avatar_url"] = nil
		} else {
			updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL.Value)
		}
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, userID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
	}
	return s.Get(ctx, userID)
}
