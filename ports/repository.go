package ports

import (
	"context"

	"clintab/domain/frame"
)

// SubjectRepository loads subject-level analysis records from storage
type SubjectRepository interface {
	// LoadCohort returns the analysis dataset of one study cohort.
	LoadCohort(ctx context.Context, study string) (*frame.Frame, error)
}

// DatasetReader reads an analysis dataset from a file source
type DatasetReader interface {
	ReadFrame() (*frame.Frame, error)
}
