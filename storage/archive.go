package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

const snapshotContentType = "application/json"

// SnapshotArchiver writes submitted brackets to object storage so they can be
// audited independently of the database.
type SnapshotArchiver struct {
	uploader FileUploader
	prefix   string
}

func NewSnapshotArchiver(uploader FileUploader, prefix string) *SnapshotArchiver {
	return &SnapshotArchiver{uploader: uploader, prefix: prefix}
}

// SnapshotKey is content addressed, so re-archiving the same snapshot
// overwrites the same object.
func (a *SnapshotArchiver) SnapshotKey(s brackets.Snapshot) string {
	digest := s.Digest
	if len(digest) > 16 {
		digest = digest[:16]
	}
	return fmt.Sprintf("%ssnapshots/%d/%s.json", a.prefix, s.UserID, digest)
}

// Archive uploads s as JSON and returns its public location, which is empty
// when the bucket has no public URL.
func (a *SnapshotArchiver) Archive(ctx context.Context, s brackets.Snapshot) (string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot for user %d: %w", s.UserID, err)
	}

	res, err := a.uploader.Upload(ctx, a.SnapshotKey(s), snapshotContentType, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return res.Location, nil
}
