// Package exif embeds inference payloads into media files with exiftool.
package exif

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"autometa/internal/model"
)

// ErrExiftoolNotFound indicates the exiftool binary is not installed.
// Embedding is optional, so callers treat this as a warning, not a
// run failure.
var ErrExiftoolNotFound = errors.New("exiftool binary not found")

const commandTimeout = 30 * time.Second

// EmbedWorkers bounds how many exiftool processes run at once. Embedding is
// local disk work; it does not inherit the engine's API concurrency.
const EmbedWorkers = 4

// Embedder writes title, description and keywords into a file's XMP and
// IPTC tags.
type Embedder struct {
	// Bin overrides the exiftool binary name, for testing.
	Bin string
}

func (e *Embedder) bin() string {
	if e.Bin != "" {
		return e.Bin
	}
	return "exiftool"
}

// Check verifies exiftool is available.
func (e *Embedder) Check() error {
	if _, err := exec.LookPath(e.bin()); err != nil {
		return ErrExiftoolNotFound
	}
	return nil
}

// Embed writes meta into the file at path, replacing existing tags.
func (e *Embedder) Embed(ctx context.Context, path string, meta *model.Metadata) error {
	if err := e.Check(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	args := []string{
		"-overwrite_original",
		"-charset", "UTF8",
		"-codedcharacterset=utf8",
	}
	if meta.Title != "" {
		args = append(args,
			"-XMP-dc:Title="+meta.Title,
			"-IPTC:ObjectName="+meta.Title,
		)
	}
	if meta.Description != "" {
		args = append(args,
			"-XMP-dc:Description="+meta.Description,
			"-IPTC:Caption-Abstract="+meta.Description,
		)
	}
	for _, kw := range meta.Keywords {
		args = append(args,
			"-XMP-dc:Subject+="+kw,
			"-IPTC:Keywords+="+kw,
		)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, e.bin(), args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exiftool: %w: %s", err, strings.TrimSpace(output.String()))
	}
	return nil
}

// EmbedAll embeds every succeeded job's payload, running at most
// EmbedWorkers exiftool processes concurrently. Per-file failures are
// logged and skipped; cancellation stops launching new processes. Returns
// how many files were embedded.
func (e *Embedder) EmbedAll(ctx context.Context, jobs []*model.Job, log *slog.Logger) int {
	sem := semaphore.NewWeighted(EmbedWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	embedded := 0

	for _, job := range jobs {
		if job.Status != model.StatusSucceeded || job.Result == nil {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(job *model.Job) {
			defer wg.Done()
			defer sem.Release(1)

			if err := e.Embed(ctx, job.Path, job.Result); err != nil {
				log.Warn("embedding failed", "file", job.Filename(), "error", err)
				return
			}
			mu.Lock()
			embedded++
			mu.Unlock()
		}(job)
	}

	wg.Wait()
	return embedded
}
