package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

// Checker computes a caller's capabilities on a trip. uuid.Nil is the anonymous caller.
type Checker interface {
	Check(ctx context.Context, tripID, userID uuid.UUID) (PermissionCheck, error)
}

// TxChecker is a Checker that can also read inside an open transaction.
type TxChecker interface {
	Checker
	WithTx(tx *gorm.DB) Checker
}

type Resolver struct {
	repo Repository
	logg *logger.Logger
}

func NewResolver(repo Repository, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "permissions repository required")
	}
	return &Resolver{repo: repo, logg: logg}, nil
}

func (r *Resolver) WithTx(tx *gorm.DB) Checker {
	if tx == nil {
		return r
	}
	return &Resolver{repo: r.repo.WithTx(tx), logg: r.logg}
}

// Check never allows on a failed lookup: database errors surface as DEPENDENCY_ERROR.
func (r *Resolver) Check(ctx context.Context, tripID, userID uuid.UUID) (PermissionCheck, error) {
	if tripID == uuid.Nil {
		return PermissionCheck{}, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}

	trip, err := r.repo.GetTripAccess(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PermissionCheck{}, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return PermissionCheck{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}

	if userID == uuid.Nil {
		return Resolve(nil, false, trip.IsPublic), nil
	}

	member, err := r.repo.GetActiveMembership(ctx, tripID, userID)
	if err != nil {
		return PermissionCheck{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip membership")
	}

	var role *enums.TripRole
	if member != nil {
		parsed, parseErr := enums.ParseTripRole(string(member.Role))
		if parseErr != nil {
			// unrepaired legacy value; the fix-roles job rewrites these to viewer
			parsed = enums.TripRoleViewer
			if r.logg != nil {
				r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
					"trip_id":  tripID.String(),
					"user_id":  userID.String(),
					"raw_role": string(member.Role),
				}), "permissions.invalid_role")
			}
		}
		role = &parsed
	}

	return Resolve(role, trip.CreatedBy == userID, trip.IsPublic), nil
}

// Require checks the capability and returns FORBIDDEN when it is missing, or
// UNAUTHORIZED when the caller is anonymous.
func Require(ctx context.Context, checker Checker, tripID, userID uuid.UUID, capability Capability) (PermissionCheck, error) {
	check, err := checker.Check(ctx, tripID, userID)
	if err != nil {
		return PermissionCheck{}, err
	}
	if check.Allows(capability) {
		return check, nil
	}
	if userID == uuid.Nil {
		return check, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return check, pkgerrors.Newf(pkgerrors.CodeForbidden, "missing %s permission for this trip", capability)
}

func RequireView(ctx context.Context, checker Checker, tripID, userID uuid.UUID) (PermissionCheck, error) {
	return Require(ctx, checker, tripID, userID, CapView)
}

func RequireEdit(ctx context.Context, checker Checker, tripID, userID uuid.UUID) (PermissionCheck, error) {
	return Require(ctx, checker, tripID, userID, CapEdit)
}

func RequireManage(ctx context.Context, checker Checker, tripID, userID uuid.UUID) (PermissionCheck, error) {
	return Require(ctx, checker, tripID, userID, CapManage)
}

func RequireDelete(ctx context.Context, checker Checker, tripID, userID uuid.UUID) (PermissionCheck, error) {
	return Require(ctx, checker, tripID, userID, CapDeleteTrip)
}
