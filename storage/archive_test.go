package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (u *recordingUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *recordingUploader) GetPublicURL(key string) string {
	return publicURL("https://cdn.example.com/wc26/", key)
}

func frozenSnapshot(t *testing.T) brackets.Snapshot {
	t.Helper()
	reg := brackets.MustLoadRegistry()
	b := brackets.NewBracket(reg)
	for _, c := range b.ThirdPlaceCandidates()[:8] {
		_, err := b.ToggleThirdPlace(c.Team)
		require.NoError(t, err)
	}
	s, _, err := b.Freeze(17, time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return s
}

func TestSnapshotArchiver_Archive(t *testing.T) {
	snap := frozenSnapshot(t)
	up := &recordingUploader{}
	archiver := NewSnapshotArchiver(up, "prod/")

	location, err := archiver.Archive(context.Background(), snap)
	require.NoError(t, err)

	wantKey := "prod/snapshots/17/" + snap.Digest[:16] + ".json"
	assert.Equal(t, wantKey, up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, "https://cdn.example.com/wc26/"+wantKey, location)

	var decoded brackets.Snapshot
	require.NoError(t, json.Unmarshal(up.body, &decoded))
	assert.Equal(t, snap.Digest, decoded.Digest)
	assert.Equal(t, snap.ThirdPlacePicks, decoded.ThirdPlacePicks)

	t.Run("upload failure", func(t *testing.T) {
		failing := NewSnapshotArchiver(&recordingUploader{err: errors.New("r2 down")}, "")
		_, err := failing.Archive(context.Background(), snap)
		assert.EqualError(t, err, "r2 down")
	})
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a/b.json", publicURL("https://cdn.example.com", "/a/b.json"))
	assert.Equal(t, "https://cdn.example.com/x/a.json", publicURL("https://cdn.example.com/x/", "a.json"))
	assert.Empty(t, publicURL("", "a.json"))
	assert.Empty(t, publicURL("https://cdn.example.com", ""))
}
