// Package discovery scans an input directory and turns supported media
// files into pending jobs.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"autometa/internal/model"
)

// MinFileSize is the smallest file worth sending for inference. Anything
// below this is almost certainly a placeholder or a truncated write.
const MinFileSize = 100

var categories = map[string]model.FileCategory{
	".jpg":  model.CategoryImage,
	".jpeg": model.CategoryImage,
	".png":  model.CategoryImage,
	".eps":  model.CategoryVector,
	".ai":   model.CategoryVector,
	".svg":  model.CategoryVector,
	".mp4":  model.CategoryVideo,
	".mov":  model.CategoryVideo,
	".avi":  model.CategoryVideo,
	".mkv":  model.CategoryVideo,
}

// Categorize maps a filename to its category. The second return is false
// for unsupported extensions.
func Categorize(name string) (model.FileCategory, bool) {
	cat, ok := categories[strings.ToLower(filepath.Ext(name))]
	return cat, ok
}

// Scan lists the supported files directly inside dir and returns them as
// pending jobs in stable name order. Subdirectories, hidden files,
// unsupported extensions and files under MinFileSize are skipped.
func Scan(dir string, log *slog.Logger) ([]*model.Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var jobs []*model.Job
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		cat, ok := Categorize(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn("skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}
		if info.Size() < MinFileSize {
			log.Warn("skipping file below minimum size", "file", entry.Name(), "size", info.Size())
			continue
		}
		jobs = append(jobs, model.NewJob(filepath.Join(dir, entry.Name()), cat))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Path < jobs[j].Path })
	return jobs, nil
}
