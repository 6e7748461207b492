// Package report manages the dated report directories a run writes into.
//
// Each run gets its own directory under the output root, named after the
// run date with a numeric suffix when the date is taken:
//
//	reports/2024-03-01
//	reports/2024-03-01-1
//	reports/current -> 2024-03-01-1
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/AndreyAkinshin/nightowl/internal/errors"
)

const (
	// CurrentLinkName is the symlink pointing at the latest run directory.
	CurrentLinkName = "current"
	// LogFileName is the run log written inside the run directory.
	LogFileName = "report.txt"
	// SummaryFileName is the machine-readable run summary.
	SummaryFileName = "summary.yaml"

	dateLayout = "2006-01-02"
	// maxAttempts bounds the suffix search.
	maxAttempts = 10000
)

// Allocator creates run directories.
type Allocator struct {
	// FirstSuffix is the first numeric suffix tried after the bare date.
	FirstSuffix int
}

// DefaultAllocator starts suffixes at -1.
var DefaultAllocator = Allocator{FirstSuffix: 1}

// Run is one allocated report directory.
type Run struct {
	// ID identifies the run in logs and in the summary.
	ID string
	// Root is the output root the run lives in.
	Root string
	// Path is the absolute path of the run directory.
	Path string
	// Started is the time the directory was allocated.
	Started time.Time
}

// Allocate creates root if needed, then the first free directory among
// root/YYYY-MM-DD, root/YYYY-MM-DD-N, root/YYYY-MM-DD-N+1 and so on.
// Creation is atomic per name, so two runs on the same day never share a
// directory. Errors are report errors.
func (a Allocator) Allocate(root string, now time.Time) (*Run, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Report(err, "failed to resolve output root")
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, errors.Report(err, "failed to create output root")
	}

	base := now.Format(dateLayout)
	for i := 0; i < maxAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, a.FirstSuffix+i-1)
		}

		path := filepath.Join(absRoot, name)
		err := os.Mkdir(path, 0755)
		if err == nil {
			return &Run{
				ID:      uuid.NewString(),
				Root:    absRoot,
				Path:    path,
				Started: now,
			}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Report(err, "failed to create report directory")
		}
	}

	return nil, errors.Report(nil, fmt.Sprintf("no free report directory for %s after %d attempts", base, maxAttempts))
}

// Name returns the run directory's base name.
func (r *Run) Name() string {
	return filepath.Base(r.Path)
}

// ArtifactPath returns the path of the artifact called name.
func (r *Run) ArtifactPath(name string) string {
	return filepath.Join(r.Path, name+".txt")
}

// WriteArtifact writes content to <run>/<name>.txt in one call.
func (r *Run) WriteArtifact(name, content string) error {
	path := r.ArtifactPath(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// OpenLog creates report.txt for the run log.
func (r *Run) OpenLog() (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(r.Path, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Report(err, "failed to open run log")
	}
	return f, nil
}

// PointCurrent replaces root/current with a relative symlink to path.
func PointCurrent(root, path string) error {
	link := filepath.Join(root, CurrentLinkName)

	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return errors.Report(err, "failed to remove current link")
		}
	} else if !os.IsNotExist(err) {
		return errors.Report(err, "failed to inspect current link")
	}

	if err := os.Symlink(filepath.Base(path), link); err != nil {
		return errors.Report(err, "failed to create current link")
	}
	return nil
}
