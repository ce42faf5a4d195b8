package api

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/PoLsss/ML-lightrag-core/internal/metrics"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
)

const MIMENDJSON = "application/x-ndjson"

// NDJSONWriter writes one JSON object per line and flushes after each one.
type NDJSONWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	started bool
}

func NewNDJSONWriter(w http.ResponseWriter, flusher http.Flusher) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{
		w:       w,
		flusher: flusher,
		enc:     enc,
	}
}

func (n *NDJSONWriter) start() {
	if n.started {
		return
	}
	n.started = true

	h := n.w.Header()
	h.Set("Content-Type", MIMENDJSON)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	n.w.WriteHeader(http.StatusOK)
}

// Write sends v as a single line. The first call commits the 200 status and
// streaming headers.
func (n *NDJSONWriter) Write(v any) error {
	n.start()
	// Encode terminates every value with '\n'.
	if err := n.enc.Encode(v); err != nil {
		return fmt.Errorf("write ndjson line: %w", err)
	}
	n.flusher.Flush()
	return nil
}

// Stream writes packets in order until the sequence ends, ctx is done or a
// write fails. It returns the number of packets written. Returning early
// stops the packet producer.
func (n *NDJSONWriter) Stream(ctx context.Context, packets iter.Seq[query.StreamPacket]) (int, error) {
	n.start()
	n.flusher.Flush()

	written := 0
	for packet := range packets {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := n.Write(packet); err != nil {
			return written, err
		}
		metrics.StreamPacketsTotal.WithLabelValues(packet.Kind.String()).Inc()
		written++
	}
	return written, nil
}
