// Package exports writes periodic CSV snapshots of every lead to object storage.
package exports

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/internal/adapters/storage"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/export"
	"leadflow_backend/platform/logger"
)

const (
	snapshotFolder      = "leads"
	snapshotContentType = "text/csv"
	snapshotKeyLayout   = "2006-01-02T15-04-05Z"
)

// Module uploads lead export snapshots.
type Module struct {
	store  storage.ObjectStore
	bucket string
	bus    events.Bus
	log    *logger.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewModule creates the exports module for bucket.
func NewModule(store storage.ObjectStore, bucket string, bus events.Bus, log *logger.Logger) *Module {
	return &Module{
		store:  store,
		bucket: bucket,
		bus:    bus,
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// SnapshotKey names the object for a snapshot taken at now. Snapshots for the
// same instant overwrite each other.
func SnapshotKey(now time.Time) string {
	return fmt.Sprintf("%s/%s.csv", snapshotFolder, now.UTC().Format(snapshotKeyLayout))
}

// StoreSnapshot writes records as CSV and returns the bucket-qualified object key.
func (m *Module) StoreSnapshot(ctx context.Context, now time.Time, records []export.LeadRecord) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := SnapshotKey(now)
	if err := m.store.PutObject(ctx, m.bucket, key, snapshotContentType, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", err
	}

	m.bus.Publish(ctx, events.LeadExportSnapshotStored{
		BaseEvent: events.NewBaseEventAt(now),
		Bucket:    m.bucket,
		Object:    key,
		Records:   len(records),
	})
	return m.bucket + "/" + key, nil
}

// DownloadURL presigns a download link for a stored snapshot.
func (m *Module) DownloadURL(ctx context.Context, key string) (string, error) {
	presigned, err := m.store.GenerateDownloadURL(ctx, m.bucket, key)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

func (m *Module) ensureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bucketReady {
		return nil
	}
	if err := m.store.EnsureBucketExists(ctx, m.bucket); err != nil {
		return err
	}
	m.bucketReady = true
	m.log.Info("export bucket ready", "bucket", m.bucket)
	return nil
}
