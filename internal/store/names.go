package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Artifact file names embed the file id so Find can locate them by substring.

func UploadName(fileID, ext string) string {
	return fileID + strings.ToLower(ext)
}

func ProcessedName(fileID, ext string, at time.Time) string {
	return fmt.Sprintf("processed_%s_%d%s", fileID, at.Unix(), strings.ToLower(ext))
}

func OCRResultName(fileID string, at time.Time) string {
	return fmt.Sprintf("ocr_result_%s_%d.txt", fileID, at.Unix())
}

func AttributeResultName(fileID string, at time.Time) string {
	return fmt.Sprintf("attributes_%s_%d.json", fileID, at.Unix())
}

func ReportName(reportType, ext string, at time.Time) string {
	return fmt.Sprintf("report_%s_%d.%s", reportType, at.Unix(), ext)
}

// IDFromName recovers the file id from an artifact name built by this
// package. Upload names yield the name without its extension.
func IDFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, prefix := range []string{"processed_", "ocr_result_", "attributes_"} {
		if rest, ok := strings.CutPrefix(base, prefix); ok {
			if i := strings.LastIndexByte(rest, '_'); i > 0 {
				return rest[:i]
			}
			return rest
		}
	}
	return base
}
