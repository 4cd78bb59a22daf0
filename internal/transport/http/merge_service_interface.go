package http

import (
	"context"
	"io"

	"trialmerge/internal/dataprocessing"
	"trialmerge/pkg/contracts/domain"
)

// MergeServiceInterface is what the merge handler needs from the service layer
type MergeServiceInterface interface {
	MergeUploads(ctx context.Context, sources []dataprocessing.Source) (*domain.MasterTable, error)
	WriteCSV(w io.Writer, table *domain.MasterTable, bom bool) error
}
