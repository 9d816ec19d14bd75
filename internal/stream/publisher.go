package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/schooltrack/fleet-tracking/internal/models"
	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

// DefaultInterval is the tick interval used when none is configured.
const DefaultInterval = 5 * time.Second

// SnapshotSource produces the fleet snapshot for one school. The publisher
// polls it; a push-on-write implementation can be swapped in behind the same
// interface without changing the wire protocol.
type SnapshotSource interface {
	FleetStatus(ctx context.Context, schoolSlug string) (*models.FleetSnapshot, error)
}

// Publisher streams fleet snapshots to a client over server-sent events:
// one snapshot immediately on subscribe, then one per tick until the client
// disconnects or the server shuts down.
type Publisher struct {
	source   SnapshotSource
	interval time.Duration
}

// NewPublisher creates a publisher polling source every interval.
func NewPublisher(source SnapshotSource, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Publisher{source: source, interval: interval}
}

// Stream serves one SSE connection for the given school. It returns
// tracking.ErrSchoolNotFound before any response bytes are written if the
// slug does not resolve, so the caller can still answer 404. Any other
// snapshot error only skips the affected tick. The ticker is always stopped
// when ctx is cancelled; nothing is fetched after that.
func (p *Publisher) Stream(ctx context.Context, w http.ResponseWriter, schoolSlug string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("response writer does not support streaming")
	}

	// First fetch happens before headers so an unknown school is still a
	// clean 404 rather than an empty stream.
	snapshot, err := p.source.FleetStatus(ctx, schoolSlug)
	if err != nil {
		if errors.Is(err, tracking.ErrSchoolNotFound) {
			return err
		}
		// Transient failure: open the stream anyway, the next tick retries.
		snapshot = nil
	}

	logger := log.WithFields(log.Fields{
		"stream_id": uuid.NewString(),
		"school":    schoolSlug,
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	logger.Info("Fleet stream opened")

	if snapshot != nil {
		if err := writeEvent(w, flusher, snapshot); err != nil {
			logger.WithError(err).Info("Fleet stream closed while sending first event")
			return nil
		}
	} else {
		logger.WithError(err).Error("Initial snapshot fetch failed, will retry on next tick")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Fleet stream closed")
			return nil
		case <-ticker.C:
			snapshot, err := p.source.FleetStatus(ctx, schoolSlug)
			if err != nil {
				// One failed tick must not kill the connection.
				logger.WithError(err).Error("Snapshot fetch failed, skipping tick")
				continue
			}
			if err := writeEvent(w, flusher, snapshot); err != nil {
				logger.WithError(err).Info("Fleet stream closed by client")
				return nil
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, snapshot *models.FleetSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
