package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trialmerge/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath   string
	extensions []string
}

// NewDiscovery creates a discovery instance that resolves relative
// directories against basePath and matches the trial file extensions.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath, extensions: config.TrialFileExtensions}
}

// FindTrialFiles lists the trial files directly inside dir, sorted by name so
// merge order is stable across runs. Subdirectories are not searched.
func (d *Discovery) FindTrialFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) && d.basePath != "" {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !d.IsTrialFile(entry.Name()) {
			continue
		}
		// spreadsheet lock files, e.g. "~$trial.xlsx"
		if strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// IsTrialFile reports whether name has one of the accepted extensions
func (d *Discovery) IsTrialFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range d.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Paths returns the Path of each entry
func Paths(infos []FileInfo) []string {
	out := make([]string, len(infos))
	for i, fi := range infos {
		out[i] = fi.Path
	}
	return out
}
