package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/lbourdet/veridoc/internal/api"
)

var (
	// ErrIngestionFailed wraps a failed upload. The registry is left
	// unchanged and no retry is attempted automatically.
	ErrIngestionFailed = errors.New("ingestion failed")
	// ErrIngestInFlight rejects a second upload while one is outstanding.
	ErrIngestInFlight = errors.New("an upload is already in flight")
)

// Uploader is the backend call that accepts a new file for extraction.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (api.UploadAck, error)
}

// IngestReceipt reports a successful ingestion. As with Receipt, RefreshErr
// only means the local list is stale.
type IngestReceipt struct {
	Ack        api.UploadAck
	RefreshErr error
}

// Ingestor hands new files to the backend for extraction. It never opens a
// correction session; ingestion and correction are separate steps.
type Ingestor struct {
	uploader  Uploader
	refresher Refresher

	mu       sync.Mutex
	inFlight bool
}

// NewIngestor wires an ingestor to the backend and the registry.
func NewIngestor(uploader Uploader, refresher Refresher) *Ingestor {
	return &Ingestor{uploader: uploader, refresher: refresher}
}

// Ingest uploads the file at path. On success the registry is refreshed so
// the new pending document becomes visible.
func (i *Ingestor) Ingest(ctx context.Context, path string) (IngestReceipt, error) {
	i.mu.Lock()
	if i.inFlight {
		i.mu.Unlock()
		return IngestReceipt{}, ErrIngestInFlight
	}
	i.inFlight = true
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.inFlight = false
		i.mu.Unlock()
	}()

	f, err := os.Open(path)
	if err != nil {
		return IngestReceipt{}, fmt.Errorf("%w: %w", ErrIngestionFailed, err)
	}
	defer f.Close()

	ack, err := i.uploader.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return IngestReceipt{}, fmt.Errorf("%w: %w", ErrIngestionFailed, err)
	}

	receipt := IngestReceipt{Ack: ack}
	if err := i.refresher.Refresh(ctx); err != nil {
		receipt.RefreshErr = err
	}
	return receipt, nil
}
