package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medride/internal/domain"
	"medride/internal/repository"
)

// ProfileRepository is a PostgreSQL implementation of repository.ProfileRepository.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(q Querier) *ProfileRepository {
	return &ProfileRepository{q: q}
}

type profileRow struct {
	ID                string          `db:"id"`
	Role              string          `db:"role"`
	FullName          string          `db:"full_name"`
	Phone             sql.NullString  `db:"phone"`
	Address           sql.NullString  `db:"address"`
	EmergencyContact  sql.NullString  `db:"emergency_contact"`
	MedicalConditions sql.NullString  `db:"medical_conditions"`
	Rating            sql.NullFloat64 `db:"rating"`
	TotalRides        sql.NullInt64   `db:"total_rides"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:                r.ID,
		Role:              domain.Role(r.Role),
		FullName:          r.FullName,
		Phone:             r.Phone.String,
		Address:           r.Address.String,
		EmergencyContact:  r.EmergencyContact.String,
		MedicalConditions: r.MedicalConditions.String,
		Rating:            r.Rating.Float64,
		TotalRides:        int(r.TotalRides.Int64),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, role, full_name, phone, address, emergency_contact, medical_conditions, rating, total_rides, created_at, updated_at
		FROM profiles WHERE id = $1
	`

	var row profileRow
	if err := r.q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}
