package repository

import (
	"context"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleRecord is the Bun model for the authoritative role of a user.
type RoleRecord struct {
	bun.BaseModel `bun:"table:role_records"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID    string    `bun:"user_id,notnull,unique" json:"user_id"`
	RoleCode  int       `bun:"role_code,notnull" json:"role_code"`
	RoleName  string    `bun:"role_name,notnull" json:"role_name"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Role maps the stored code back to a Role.
func (r *RoleRecord) Role() (authclient.Role, bool) {
	if r == nil {
		return authclient.RoleGuest, false
	}
	return authclient.RoleFromCode(r.RoleCode)
}

// RoleRecords looks up and assigns user roles. It implements
// authclient.RoleLookup.
type RoleRecords struct {
	repository.Repository[*RoleRecord]
	db            *bun.DB
	now           func() time.Time
	claimFallback bool
}

var _ authclient.RoleLookup = (*RoleRecords)(nil)

// RoleRecordsOption customizes RoleRecords.
type RoleRecordsOption func(*RoleRecords)

// WithClaimFallback controls what LookupRole does for users without a
// record: when enabled (the default) the role claim of the token is used,
// otherwise the lookup fails.
func WithClaimFallback(enabled bool) RoleRecordsOption {
	return func(r *RoleRecords) {
		r.claimFallback = enabled
	}
}

// WithRoleRecordsClock overrides time.Now
func WithRoleRecordsClock(now func() time.Time) RoleRecordsOption {
	return func(r *RoleRecords) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRoleRecords(db *bun.DB, opts ...RoleRecordsOption) *RoleRecords {
	repo := repository.NewRepository[*RoleRecord](db, repository.ModelHandlers[*RoleRecord]{
		NewRecord: func() *RoleRecord { return &RoleRecord{} },
		GetID: func(r *RoleRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RoleRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	records := &RoleRecords{
		Repository:    repo,
		db:            db,
		now:           time.Now,
		claimFallback: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(records)
		}
	}
	return records
}

// CreateRoleRecordsTable creates the role_records table if missing.
func CreateRoleRecordsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*RoleRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// FindByUserID returns the record of userID.
func (r *RoleRecords) FindByUserID(ctx context.Context, userID string) (*RoleRecord, error) {
	return r.FindByUserIDTx(ctx, r.db, userID)
}

func (r *RoleRecords) FindByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*RoleRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"user_id": userID})
	}

	record := &RoleRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID})
		}
		return nil, err
	}
	return record, nil
}

// Assign stores role as the authoritative role of userID. Record ids are
// derived from the user id so repeated assignments touch one row.
func (r *RoleRecords) Assign(ctx context.Context, userID string, role authclient.Role) (*RoleRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, goerrors.New("user id is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if !role.IsKnown() || !role.IsAuthenticatedRole() {
		return nil, goerrors.New("cannot assign a guest or unrecognized role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"user_id": userID, "role": role.String()})
	}

	var out *RoleRecord
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := r.now().UTC()
		existing, err := r.FindByUserIDTx(ctx, tx, userID)
		if err == nil {
			existing.RoleCode = role.Code()
			existing.RoleName = role.String()
			existing.UpdatedAt = now
			out, err = r.Repository.UpdateTx(ctx, tx, existing, repository.UpdateByID(existing.ID.String()))
			return err
		}
		if !repository.IsRecordNotFound(err) {
			return err
		}

		record := &RoleRecord{
			UserID:    userID,
			RoleCode:  role.Code(),
			RoleName:  role.String(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if id, err := hashid.NewUUID(userID); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}

		out, err = r.Repository.CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to assign role").
			WithMetadata(map[string]any{"user_id": userID})
	}
	return out, nil
}

// Revoke removes the record of userID
func (r *RoleRecords) Revoke(ctx context.Context, userID string) error {
	_, err := r.db.NewDelete().
		Model((*RoleRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// LookupRole returns the stored role of the token subject.
func (r *RoleRecords) LookupRole(ctx context.Context, claims *authclient.Claims) (authclient.Role, error) {
	if claims == nil {
		return authclient.RoleGuest, authclient.ErrRoleLookupFailed
	}

	record, err := r.FindByUserID(ctx, claims.Subject)
	if err != nil {
		if repository.IsRecordNotFound(err) && r.claimFallback {
			// a Guest claim on a valid token is unrecognized, not a failure
			if role, ok := claims.RoleClaim.Role(); ok && role.IsAuthenticatedRole() {
				return role, nil
			}
			return authclient.RoleUnknown, nil
		}
		return authclient.RoleGuest, err
	}

	role, ok := record.Role()
	if !ok {
		return authclient.RoleUnknown, nil
	}
	return role, nil
}
