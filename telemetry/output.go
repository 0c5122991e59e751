package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// FrameRecord is a flat struct for CSV export of per-window frame timing.
type FrameRecord struct {
	Frame    int64   `csv:"frame"`
	AvgMs    float64 `csv:"avg_ms"`
	StdDevMs float64 `csv:"stddev_ms"`
	FPS      float64 `csv:"fps"`
	Tier     string  `csv:"tier"`
	Backend  string  `csv:"backend"`
}

// TierRecord is a flat struct for CSV export of quality-tier transitions.
type TierRecord struct {
	Frame int64   `csv:"frame"`
	From  string  `csv:"from"`
	To    string  `csv:"to"`
	AvgMs float64 `csv:"avg_ms"`
}

// OutputManager handles structured run output with CSV logging. A nil
// OutputManager is valid and discards everything.
type OutputManager struct {
	dir       string
	frameFile *os.File
	tierFile  *os.File

	frameHeaderWritten bool
	tierHeaderWritten  bool
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "frames.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating frames.csv: %w", err)
	}
	om.frameFile = f

	f, err = os.Create(filepath.Join(dir, "tiers.csv"))
	if err != nil {
		om.frameFile.Close()
		return nil, fmt.Errorf("creating tiers.csv: %w", err)
	}
	om.tierFile = f

	return om, nil
}

// WriteFrame appends a frame timing record.
func (om *OutputManager) WriteFrame(rec FrameRecord) error {
	if om == nil {
		return nil
	}
	return writeRecord([]FrameRecord{rec}, om.frameFile, &om.frameHeaderWritten)
}

// WriteTier appends a tier transition record.
func (om *OutputManager) WriteTier(rec TierRecord) error {
	if om == nil {
		return nil
	}
	return writeRecord([]TierRecord{rec}, om.tierFile, &om.tierHeaderWritten)
}

// Dir returns the output directory, or "" when disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes the CSV files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.frameFile, om.tierFile} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeRecord[T any](records []T, f *os.File, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		*headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, f); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
