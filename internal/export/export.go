// Package export writes the successful inference payloads to a CSV file
// in the output directory.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"autometa/internal/model"
)

// MaxFieldLength bounds the title and description columns. Longer values
// are cut back to the last full sentence that fits, or hard-truncated.
const MaxFieldLength = 200

// Writer appends one CSV row per succeeded job.
type Writer struct {
	// KeywordCap bounds how many keywords a row keeps. Zero means no cap.
	KeywordCap int
}

// Write creates (or truncates) path and writes a header plus one row per
// succeeded job, in input order. Jobs without a result are skipped.
func (w *Writer) Write(path string, jobs []*model.Job) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Filename", "Title", "Description", "Keywords"}); err != nil {
		return 0, err
	}

	rows := 0
	for _, job := range jobs {
		if job.Status != model.StatusSucceeded || job.Result == nil {
			continue
		}
		kws := job.Result.Keywords
		if w.KeywordCap > 0 && len(kws) > w.KeywordCap {
			kws = kws[:w.KeywordCap]
		}
		row := []string{
			job.Filename(),
			Truncate(job.Result.Title, MaxFieldLength),
			Truncate(job.Result.Description, MaxFieldLength),
			strings.Join(kws, ", "),
		}
		if err := cw.Write(row); err != nil {
			return rows, err
		}
		rows++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, err
	}
	return rows, nil
}

// Truncate shortens s to at most max bytes, preferring to cut at the last
// sentence boundary inside the limit. A hard cut lands on a rune boundary
// and ends with a period, so the output is always valid UTF-8.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	if i := strings.LastIndexByte(s[:max], '.'); i > 0 && i < max-1 {
		return s[:i+1]
	}
	end := max - 1
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "."
}
