// Package watcher polls the downloads directory for freshly arrived
// submission batches: either an already-expanded course folder or a matching
// zip archive downloaded today. Expanded folders are handed to the import
// pipeline; archives are unpacked in place and picked up by a later tick.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"tmamon/internal/archive"
	"tmamon/internal/config"
	"tmamon/internal/fileutil"
	"tmamon/internal/logging"
)

// monthLetters are the twelve OU presentation month codes. I is skipped.
const monthLetters = "ABCDEFGHJKLM"

// BatchHandler consumes one detected course folder. The CLI wires it to the
// import merger plus the record refresh.
type BatchHandler interface {
	HandleBatch(ctx context.Context, source string) error
}

// Watcher is the downloads directory poller. Ticks never overlap; disabling
// the watcher stops scheduling and lets an in-flight tick finish.
type Watcher struct {
	downloads    string
	logger       *slog.Logger
	handler      BatchHandler
	unpack       func(zipPath, destDir string) error
	pollInterval time.Duration
	now          func() time.Time
	suffixes     map[string]struct{}

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config, logger *slog.Logger, handler BatchHandler) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	now := time.Now
	suffixes := make(map[string]struct{})
	for _, suffix := range AcceptableSuffixes(now()) {
		suffixes[suffix] = struct{}{}
	}
	return &Watcher{
		downloads:    cfg.Paths.DownloadsDir,
		logger:       logger.With(logging.String(logging.FieldComponent, "watcher")),
		handler:      handler,
		unpack:       archive.Unpack,
		pollInterval: time.Duration(cfg.PollInterval()) * time.Second,
		now:          now,
		suffixes:     suffixes,
	}
}

// AcceptableSuffixes returns the four-character name endings that identify a
// freshly unpacked course folder: the literal "1-99", plus "-YYm" for the
// previous, current, and next calendar year crossed with the twelve month
// letters.
func AcceptableSuffixes(today time.Time) []string {
	suffixes := []string{"1-99"}
	for _, year := range []int{today.Year() - 1, today.Year(), today.Year() + 1} {
		yy := fmt.Sprintf("%02d", year%100)
		for _, month := range monthLetters {
			suffixes = append(suffixes, "-"+yy+string(month))
		}
	}
	return suffixes
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	w.tick(w.ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.tick(w.ctx)
		}
	}
}

// tick runs one poll: expanded-folder detection first, archive detection
// only when no folder was found. Ticks run on the loop goroutine, so they
// never overlap.
func (w *Watcher) tick(ctx context.Context) {
	entries, err := os.ReadDir(w.downloads)
	if err != nil {
		w.logger.Warn("downloads directory unreadable; will retry",
			logging.Error(err),
			logging.String("downloads", w.downloads),
		)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !w.isCandidateName(entry.Name()) {
			continue
		}
		source := filepath.Join(w.downloads, entry.Name())
		if !confirmExpandedFolder(source) {
			continue
		}
		w.logger.Info("detected course folder",
			logging.String("source", source),
			logging.String(logging.FieldEventType, "batch_detected"),
		)
		if err := w.handler.HandleBatch(ctx, source); err != nil {
			w.logger.Error("batch import failed",
				logging.String("source", source),
				logging.Error(err),
				logging.String(logging.FieldEventType, "batch_import_failed"),
			)
		}
		return
	}

	w.detectArchive(entries)
}

func (w *Watcher) isCandidateName(name string) bool {
	if len(name) < 4 {
		return false
	}
	_, ok := w.suffixes[name[len(name)-4:]]
	return ok
}

// confirmExpandedFolder distinguishes a genuine unpacked course folder from
// incidental clutter: every child must be a two-character directory or a
// recognized OS metadata file.
func confirmExpandedFolder(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if fileutil.IsOSMetadata(entry.Name()) {
			continue
		}
		if entry.IsDir() && len(entry.Name()) == 2 {
			continue
		}
		return false
	}
	return true
}

// detectArchive looks for a zip downloaded today that has not been unpacked
// yet, unpacks it in place, and marks it so the next tick sees the expanded
// folder instead.
func (w *Watcher) detectArchive(entries []os.DirEntry) {
	stem := w.now().Format("02012006")
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		if !strings.Contains(name, stem) || archive.ImportedMarker(name) {
			continue
		}
		zipPath := filepath.Join(w.downloads, name)
		w.logger.Info("detected downloaded archive",
			logging.String("archive", zipPath),
			logging.String(logging.FieldEventType, "archive_detected"),
		)
		if err := w.unpack(zipPath, w.downloads); err != nil {
			w.logger.Error("archive unpack failed",
				logging.String("archive", zipPath),
				logging.Error(err),
			)
			return
		}
		if err := archive.MarkImported(zipPath); err != nil {
			w.logger.Warn("archive could not be marked imported",
				logging.String("archive", zipPath),
				logging.Error(err),
			)
		}
		return
	}
}
