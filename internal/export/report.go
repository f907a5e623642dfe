package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteReportFile writes the markdown report into outputDir, named by report
// date, and returns the full path.
func WriteReportFile(content, outputDir string, reportDate time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("crm_report_%s.md", reportDate.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}
