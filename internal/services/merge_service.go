package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"trialmerge/internal/dataprocessing"
	"trialmerge/internal/exporter"
	"trialmerge/internal/files"
	"trialmerge/internal/validation"
	"trialmerge/pkg/contracts/domain"
)

// MergeRequest describes one file-based merge run
type MergeRequest struct {
	Paths      []string
	OutputFile string
	BOMPrefix  bool
	Summary    bool
}

// MergeResult is the outcome of a merge run
type MergeResult struct {
	Table      *domain.MasterTable
	Summary    *dataprocessing.Summary
	OutputFile string
	Saved      bool
}

// AllFailed reports whether inputs were given but none could be parsed
func (r *MergeResult) AllFailed() bool {
	return r.Table.Empty() && len(r.Table.Failures) > 0
}

// MergeService orchestrates discovery, assembly, summarising and saving
type MergeService struct {
	assembler *dataprocessing.Assembler
	writer    *exporter.CSVWriter
	discovery *files.Discovery
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewMergeService creates a merge service. Relative input directories are
// resolved against workingDir.
func NewMergeService(assembler *dataprocessing.Assembler, workingDir string, logger *slog.Logger) *MergeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeService{
		assembler: assembler,
		writer:    exporter.NewCSVWriter(logger),
		discovery: files.NewDiscovery(workingDir),
		validator: validation.NewFileValidator(logger),
		logger:    logger.With(slog.String("component", "merge_service")),
	}
}

// ResolveInputs combines explicitly named files with every trial file in dir.
// Explicit files keep their order and come first; duplicates are dropped.
// A missing explicit file is kept so the merge reports it as unreadable.
func (s *MergeService) ResolveInputs(args []string, dir string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		key := filepath.Clean(p)
		if seen[key] {
			return
		}
		seen[key] = true
		paths = append(paths, p)
	}

	for _, arg := range args {
		if err := s.validator.ValidateTrialFile(arg); err != nil {
			s.logger.Warn("input file check failed", slog.String("file", arg), slog.String("error", err.Error()))
		}
		add(arg)
	}

	if dir != "" {
		if err := s.validator.ValidateInputDirectory(dir); err != nil {
			return nil, err
		}
		found, err := s.discovery.FindTrialFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range files.Paths(found) {
			add(p)
		}
		s.logger.Info("discovered trial files",
			slog.String("directory", dir),
			slog.Int("count", len(found)))
	}

	return paths, nil
}

// MergeFiles assembles req.Paths and saves the table to req.OutputFile when
// at least one row was produced. An empty table is never written.
func (s *MergeService) MergeFiles(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	table, err := s.assembler.Assemble(ctx, req.Paths)
	if err != nil {
		return nil, fmt.Errorf("merge interrupted: %w", err)
	}

	result := &MergeResult{Table: table, OutputFile: req.OutputFile}
	if req.Summary {
		summary := dataprocessing.Summarize(table)
		result.Summary = &summary
	}

	if table.Empty() {
		s.logger.WarnContext(ctx, "master table is empty, not saving",
			slog.Int("files", len(req.Paths)),
			slog.Int("files_failed", len(table.Failures)))
		return result, nil
	}

	if err := s.validator.ValidateOutputDirectory(filepath.Dir(req.OutputFile)); err != nil {
		return result, err
	}
	if err := s.writer.WriteMasterTable(ctx, req.OutputFile, table, exporter.WriteOptions{BOMPrefix: req.BOMPrefix}); err != nil {
		return result, err
	}
	result.Saved = true

	s.logger.InfoContext(ctx, "master table saved",
		slog.String("output_file", req.OutputFile),
		slog.Int("rows", len(table.Records)))
	return result, nil
}

// MergeUploads assembles in-memory files. Nothing is written to disk.
func (s *MergeService) MergeUploads(ctx context.Context, sources []dataprocessing.Source) (*domain.MasterTable, error) {
	table, err := s.assembler.AssembleSources(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("merge interrupted: %w", err)
	}
	return table, nil
}

// WriteCSV streams table as CSV to w
func (s *MergeService) WriteCSV(w io.Writer, table *domain.MasterTable, bom bool) error {
	return s.writer.WriteTo(w, table, exporter.WriteOptions{BOMPrefix: bom})
}
