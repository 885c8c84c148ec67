// Package report renders scenario results to files: PNG plots through
// gonum/plot (PSF heatmaps, radial profiles, modulation curves, OPD maps)
// and standalone HTML charts through go-echarts. Scenarios compute the
// numbers; this package only draws them.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeOutputDir creates a timestamped output directory for one scenario run:
// <baseDir>/<scenario>/<timestamp>.
func MakeOutputDir(baseDir, scenario string, now time.Time) (string, error) {
	dir := filepath.Join(baseDir, scenario, FormatTimestamp(now))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	return dir, nil
}
