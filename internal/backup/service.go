package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/grocyhq/grocy-pos/internal/config"
)

// Service periodically snapshots the inventory and sales files into the
// backup directory, keeping the most recent cfg.Keep copies per source.
type Service struct {
	cfg     config.Backup
	logger  *slog.Logger
	sources []string

	stopChan chan struct{}
}

func NewService(cfg config.Backup, logger *slog.Logger, sources ...string) *Service {
	return &Service{
		cfg:      cfg,
		logger:   logger.With(slog.String("service", "backup")),
		sources:  sources,
		stopChan: make(chan struct{}),
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
		}
	}
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-time.After(s.cfg.Interval):
			if err := s.SnapshotAll(ctx); err != nil {
				s.logger.ErrorContext(ctx, "error snapshotting files", slog.Any("error", err))
				continue
			}
		}
	}
}

// SnapshotAll copies every configured source that exists. Missing sources are
// skipped so a fresh install with no sales file does not fail the run.
func (s *Service) SnapshotAll(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now().UTC()
	for _, src := range s.sources {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}

		dst, err := s.snapshot(src, now)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", src, err)
		}
		s.logger.InfoContext(ctx, "snapshot written",
			slog.String("source", src),
			slog.String("backup", dst),
		)

		if err := s.prune(src); err != nil {
			return fmt.Errorf("prune backups for %s: %w", src, err)
		}
	}

	return nil
}

func (s *Service) snapshot(src string, now time.Time) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(s.cfg.Dir, backupName(src, now))
	out, err := os.CreateTemp(s.cfg.Dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(out.Name())

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(out.Name(), dst); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return dst, nil
}

// prune removes the oldest snapshots of src beyond the retention count.
// Names embed an RFC3339-ish timestamp so lexical order is creation order.
func (s *Service) prune(src string) error {
	if s.cfg.Keep <= 0 {
		return nil
	}

	prefix := backupPrefix(src)
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) <= s.cfg.Keep {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-s.cfg.Keep] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			return fmt.Errorf("remove old backup: %w", err)
		}
	}

	return nil
}

func backupPrefix(src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-"
}

func backupName(src string, now time.Time) string {
	return backupPrefix(src) + now.Format("20060102T150405Z") + filepath.Ext(src)
}
