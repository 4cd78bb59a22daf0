package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved locations used by a merge run.
// All fields are absolute.
type Paths struct {
	WorkingDir string
	InputDir   string
	OutputFile string
	OutputDir  string
	LogsDir    string
}

// ResolvePaths turns the configured paths into absolute ones. Relative
// entries are resolved against the current working directory.
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wd, p)
	}

	out := abs(pc.OutputFile)
	paths := &Paths{
		WorkingDir: wd,
		InputDir:   abs(pc.InputDir),
		OutputFile: out,
		OutputDir:  filepath.Dir(out),
		LogsDir:    abs(pc.LogsDir),
	}
	return paths, nil
}

// EnsureDirectories creates the output and log directories if they don't exist.
// The input directory is never created; a missing one is reported by discovery.
func (p *Paths) EnsureDirectories() error {
	logger := slog.Default()

	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution summary",
		slog.Group("paths",
			slog.String("working_dir", p.WorkingDir),
			slog.String("input_dir", p.InputDir),
			slog.String("output_file", p.OutputFile),
			slog.String("logs_dir", p.LogsDir),
		))
}
