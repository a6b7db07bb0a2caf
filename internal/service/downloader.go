package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ticketmirror/internal/client/zendesk"
)

const maxAttachmentFileName = 180

// AttachmentDownloader stores attachment blobs on local disk, laid out as
// <dir>/<ticket_id>/<attachment_id>__<filename>. Downloads are best effort:
// the caller records the metadata row either way.
type AttachmentDownloader struct {
	Client  *zendesk.Client
	Dir     string
	Enabled bool
	Logger  *zap.Logger
}

func NewAttachmentDownloader(client *zendesk.Client, dir string, enabled bool, logger *zap.Logger) *AttachmentDownloader {
	return &AttachmentDownloader{Client: client, Dir: dir, Enabled: enabled, Logger: logger}
}

// Fetch downloads one attachment and returns its local path. An already
// present non-empty file is reused without re-downloading, which makes
// repeated passes over the same closed tickets cheap.
func (d *AttachmentDownloader) Fetch(ctx context.Context, ticketID int64, a *zendesk.Attachment) (string, error) {
	if d == nil || !d.Enabled {
		return "", nil
	}
	if a.ContentURL == "" {
		return "", fmt.Errorf("attachment %d has no content url", a.ID)
	}
	dir := filepath.Join(d.Dir, fmt.Sprintf("%d", ticketID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d__%s", a.ID, sanitizeFileName(a.FileName)))
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	resp, err := d.Client.Do(ctx, a.ContentURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download attachment %d: status %d", a.ID, resp.StatusCode)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write attachment %d: %w", a.ID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if d.Logger != nil {
		d.Logger.Debug("attachment stored", zap.Int64("attachment_id", a.ID), zap.String("path", path))
	}
	return path, nil
}

// sanitizeFileName strips path separators, characters rejected by common
// filesystems (attachment dirs may be SMB mounts) and control characters
// from a source-supplied filename, and bounds its length.
func sanitizeFileName(name string) string {
	if name == "" {
		return "attachment.bin"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > maxAttachmentFileName {
		s = s[:maxAttachmentFileName]
	}
	return s
}
