// Package storage keeps database backups and exported artifacts, locally and
// optionally in S3.
package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ignite/leadharvest/internal/config"
	"github.com/ignite/leadharvest/internal/pkg/vault"
)

// BackupPrefix and BackupLayout name snapshot files users_backup_YYYYMMDD_HHMMSS.db.
// A second snapshot in the same second is named users_backup_YYYYMMDD_HHMMSS_2.db.
const (
	BackupPrefix = "users_backup_"
	BackupLayout = "20060102_150405"
)

// Source produces a consistent copy of the live database.
type Source interface {
	BackupTo(ctx context.Context, dst string) error
}

// Uploader ships a local file to remote object storage.
type Uploader interface {
	Upload(ctx context.Context, key, path, contentType string) error
}

// Storage writes backups into a local directory and mirrors them remotely
// when an uploader is configured.
type Storage struct {
	config   config.StorageConfig
	source   Source
	remote   Uploader
	password string
	now      func() time.Time
}

// New creates storage for the configured backend. Type "aws" also uploads to S3.
func New(ctx context.Context, cfg config.StorageConfig, source Source) (*Storage, error) {
	if cfg.LocalPath == "" {
		cfg.LocalPath = "backups"
	}
	if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	s := &Storage{config: cfg, source: source, now: time.Now}

	if cfg.Type == "aws" {
		aws, err := NewAWSStorage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.remote = aws
		log.Printf("[Storage] mirroring backups to %s", aws.Location())
	}
	return s, nil
}

// WithUploader replaces the remote backend.
func (s *Storage) WithUploader(u Uploader) *Storage {
	s.remote = u
	return s
}

// WithPassword seals every backup with the database password.
func (s *Storage) WithPassword(password string) *Storage {
	s.password = password
	return s
}

// Dir returns the local backup directory.
func (s *Storage) Dir() string { return s.config.LocalPath }

// Snapshot writes a timestamped copy of the database and returns its path.
// Remote upload failures are logged; the local copy is still returned.
func (s *Storage) Snapshot(ctx context.Context) (string, error) {
	if s.source == nil {
		return "", fmt.Errorf("snapshot: no database source")
	}
	dst := s.nextBackupPath()

	if err := s.source.BackupTo(ctx, dst); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	if s.password != "" {
		sealed := dst + vault.Extension
		if err := vault.SealFile(dst, sealed, s.password); err != nil {
			return "", fmt.Errorf("snapshot: %w", err)
		}
		if err := os.Remove(dst); err != nil {
			return "", fmt.Errorf("snapshot: remove plaintext: %w", err)
		}
		dst = sealed
	}

	if err := s.Ship(ctx, "backups", dst); err != nil {
		log.Printf("[Storage] backup upload failed: %v", err)
	}
	return dst, nil
}

// nextBackupPath returns a snapshot path that is free both as plaintext and
// sealed. Snapshots within the same second get a _2, _3, ... suffix.
func (s *Storage) nextBackupPath() string {
	stamp := BackupPrefix + s.now().Format(BackupLayout)
	for i := 1; ; i++ {
		name := stamp + ".db"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.db", stamp, i)
		}
		dst := filepath.Join(s.config.LocalPath, name)
		if !exists(dst) && !exists(dst+vault.Extension) {
			return dst
		}
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Ship uploads a local file under prefix when a remote backend is set.
func (s *Storage) Ship(ctx context.Context, prefix, localPath string) error {
	if s.remote == nil {
		return nil
	}
	key := path.Join(prefix, filepath.Base(localPath))
	if err := s.remote.Upload(ctx, key, localPath, contentType(localPath)); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	log.Printf("[Storage] uploaded %s", key)
	return nil
}

// Backups lists local snapshot files, newest first.
func (s *Storage) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.config.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("reading backups: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), BackupPrefix) {
			out = append(out, filepath.Join(s.config.LocalPath, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
