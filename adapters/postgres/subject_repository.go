// Package postgres loads subject-level analysis datasets from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clintab/adapters/coerce"
	"clintab/domain/frame"
	"clintab/ports"
)

// subjectRepository implements ports.SubjectRepository over two tables:
// cohort_columns declares each study's column schema, cohort_values holds
// the cell values in long format.
type subjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a subject repository
func NewSubjectRepository(db *sqlx.DB) ports.SubjectRepository {
	return &subjectRepository{db: db}
}

type columnRow struct {
	Name  string         `db:"name"`
	Label sql.NullString `db:"label"`
	Kind  string         `db:"kind"`
}

// LoadCohort reads the analysis dataset of one study cohort
func (r *subjectRepository) LoadCohort(ctx context.Context, study string) (*frame.Frame, error) {
	const columnQuery = `SELECT name, label, kind
		FROM cohort_columns
		WHERE study = $1
		ORDER BY position`

	var schema []columnRow
	if err := r.db.SelectContext(ctx, &schema, columnQuery, study); err != nil {
		return nil, fmt.Errorf("failed to load cohort schema: %w", err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("no cohort found for study %q", study)
	}

	const valueQuery = `SELECT COALESCE(value, '')
		FROM cohort_values
		WHERE study = $1 AND column_name = $2
		ORDER BY row_idx`

	cols := make([]*frame.Column, 0, len(schema))
	for _, sc := range schema {
		var raw []string
		if err := r.db.SelectContext(ctx, &raw, valueQuery, study, sc.Name); err != nil {
			return nil, fmt.Errorf("failed to load column %q: %w", sc.Name, err)
		}
		col, err := coerce.Column(sc.Name, sc.Label.String, frame.Kind(sc.Kind), raw)
		if err != nil {
			return nil, fmt.Errorf("study %q: %w", study, err)
		}
		cols = append(cols, col)
	}

	f, err := frame.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("inconsistent cohort for study %q: %w", study, err)
	}
	return f, nil
}
