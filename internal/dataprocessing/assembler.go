package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "trialmerge/internal/errors"
	"trialmerge/internal/infrastructure"
	"trialmerge/pkg/contracts/domain"
)

// Assembler drives the parser over a batch of files and concatenates the
// results into one master table. Files are processed one at a time, in input
// order; a failing file is recorded and skipped.
type Assembler struct {
	parser  *Parser
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.IngestMetrics
}

// NewAssembler creates an assembler. A nil telemetry records nothing.
func NewAssembler(logger *slog.Logger, tel *infrastructure.Telemetry) (*Assembler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}
	metrics, err := infrastructure.NewIngestMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("create ingest metrics: %w", err)
	}
	return &Assembler{
		parser:  NewParser(logger),
		logger:  logger.With(slog.String("component", "assembler")),
		tracer:  tel.Tracer,
		metrics: metrics,
	}, nil
}

// accumulator collects per-file results in input order.
type accumulator struct {
	records  []domain.FileRecord
	failures []domain.FileFailure
	parsed   int
	present  [domain.MaxCounts]bool
}

func (a *accumulator) add(pf *ParsedFile) {
	a.parsed++
	for _, rec := range pf.Records {
		for i, c := range rec.Counts {
			if c != nil {
				a.present[i] = true
			}
		}
	}
	a.records = append(a.records, pf.Records...)
}

func (a *accumulator) table() *domain.MasterTable {
	t := &domain.MasterTable{
		Records:      a.records,
		CountColumns: []string{},
		Failures:     a.failures,
		FilesParsed:  a.parsed,
	}
	if t.Records == nil {
		t.Records = []domain.FileRecord{}
	}
	for i, ok := range a.present {
		if ok {
			t.CountColumns = append(t.CountColumns, domain.CountColumn(i))
		}
	}
	return t
}

// Assemble merges the files at paths. The table is always returned; the
// error is non-nil only when ctx was cancelled part-way, in which case the
// table holds the files processed so far.
func (a *Assembler) Assemble(ctx context.Context, paths []string) (*domain.MasterTable, error) {
	sources := make([]namedReader, len(paths))
	for i, path := range paths {
		sources[i] = namedReader{name: path, read: func() ([]string, error) { return ReadLines(path) }}
	}
	return a.run(ctx, sources)
}

// AssembleSources is Assemble for in-memory files.
func (a *Assembler) AssembleSources(ctx context.Context, sources []Source) (*domain.MasterTable, error) {
	named := make([]namedReader, len(sources))
	for i, src := range sources {
		named[i] = namedReader{name: src.Name, read: func() ([]string, error) { return ReadLinesFrom(src.Name, src.Reader) }}
	}
	return a.run(ctx, named)
}

type namedReader struct {
	name string
	read func() ([]string, error)
}

func (a *Assembler) run(ctx context.Context, sources []namedReader) (*domain.MasterTable, error) {
	ctx, span := a.tracer.Start(ctx, "dataprocessing.assemble",
		trace.WithAttributes(attribute.Int("files", len(sources))))
	defer span.End()

	start := time.Now()
	acc := &accumulator{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			infrastructure.RecordError(ctx, err)
			return acc.table(), err
		}
		a.handleFile(ctx, acc, src)
	}

	table := acc.table()
	a.metrics.RecordMergeDuration(ctx, time.Since(start), len(sources))
	span.SetAttributes(
		attribute.Int("rows", len(table.Records)),
		attribute.Int("files_failed", len(table.Failures)))

	a.logger.InfoContext(ctx, "merge finished",
		slog.Int("files", len(sources)),
		slog.Int("files_parsed", table.FilesParsed),
		slog.Int("files_failed", len(table.Failures)),
		slog.Int("rows", len(table.Records)),
		slog.Any("count_columns", table.CountColumns),
		slog.Duration("duration", time.Since(start)))

	return table, nil
}

// handleFile parses one source into acc. Nothing that happens here, a panic
// included, escapes to the batch.
func (a *Assembler) handleFile(ctx context.Context, acc *accumulator, src namedReader) {
	ctx, span := a.tracer.Start(ctx, "dataprocessing.parse_file",
		trace.WithAttributes(attribute.String("source", src.name)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			a.fail(ctx, acc, src.name, apperrors.NewParsingError(fmt.Sprintf("panic while parsing: %v", r), nil))
		}
	}()

	lines, err := src.read()
	if err != nil {
		a.fail(ctx, acc, src.name, err)
		return
	}

	parsed, err := a.parser.Parse(ctx, src.name, lines)
	if err != nil {
		a.fail(ctx, acc, src.name, err)
		return
	}

	acc.add(parsed)

	a.metrics.FilesParsed.Add(ctx, 1)
	a.metrics.RowsEmitted.Add(ctx, int64(len(parsed.Records)))
	a.metrics.RowsRejected.Add(ctx, int64(parsed.Stats.RowsRejected))
	a.metrics.CellCoercionFailures.Add(ctx, int64(parsed.Stats.CellCoercionFailures))
	span.SetAttributes(attribute.Int("records", len(parsed.Records)))

	if len(parsed.Records) == 0 {
		a.logger.WarnContext(ctx, "file has no usable rounds",
			slog.String("source", src.name),
			slog.Int("rows_rejected", parsed.Stats.RowsRejected))
	}
	if n := len(parsed.Warnings); n > 0 {
		a.logger.InfoContext(ctx, "file parsed with recovered problems",
			slog.String("source", src.name),
			slog.Int("rows_rejected", parsed.Stats.RowsRejected),
			slog.Int("cell_coercion_failures", parsed.Stats.CellCoercionFailures))
	}
}

func (a *Assembler) fail(ctx context.Context, acc *accumulator, source string, err error) {
	kind := apperrors.TypeOf(err)
	if kind == "" {
		kind = apperrors.ErrTypeParsing
	}
	acc.failures = append(acc.failures, domain.FileFailure{
		Source:  source,
		Kind:    string(kind),
		Message: err.Error(),
	})

	a.metrics.RecordFileFailure(ctx, string(kind))
	infrastructure.RecordError(ctx, err)
	a.logger.WarnContext(ctx, "skipping file",
		slog.String("source", source),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))
}
