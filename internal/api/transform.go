package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-deid/internal/request"
	"github.com/ruslano69/tdtp-deid/pkg/record"
	"github.com/ruslano69/tdtp-deid/pkg/transform"
)

const (
	requestIDHeader = "X-Request-ID"

	// kindBadRequest marks request bodies rejected before reaching the service.
	kindBadRequest = "bad_request"
)

var errUnsupportedEncoding = errors.New("unsupported content encoding")

// Transformer applies the resolved plan to one batch.
type Transformer interface {
	Transform(ctx context.Context, batch record.Batch) (record.Batch, error)
}

// transformHandler handles POST /transform.
type transformHandler struct {
	svc     Transformer
	planID  string
	tracker *request.Tracker // nil disables request tracking
	maxBody int64            // limit on the decompressed body; <= 0 means unlimited
	debug   bool             // log every input record
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Transform decodes a JSON array of records, transforms it as a whole and
// writes the result only if every record succeeded.
func (h *transformHandler) Transform(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := request.NewID()
	w.Header().Set(requestIDHeader, id)

	batch, status, err := h.decode(w, r)
	if err != nil {
		h.track(r.Context(), id, 0, kindBadRequest, start)
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kindBadRequest, RequestID: id})
		return
	}

	if h.debug {
		for i, rec := range batch {
			log.Debug().Str("request_id", id).Int("index", i).Interface("record", rec).Msg("input record")
		}
	}

	out, err := h.svc.Transform(r.Context(), batch)
	if err != nil {
		kind := transform.ErrorKind(err)
		h.track(r.Context(), id, len(batch), kind, start)

		status := http.StatusInternalServerError
		if kind == transform.KindCancelled {
			status = http.StatusServiceUnavailable
		}
		log.Error().
			Err(err).
			Str("request_id", id).
			Str("kind", kind).
			Int("records", len(batch)).
			Msg("transform failed")
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind, RequestID: id})
		return
	}

	h.track(r.Context(), id, len(batch), "", start)
	h.writeBatch(w, r, out)
}

// decode unwraps Content-Encoding and reads the batch. The size limit applies
// to the decompressed stream.
func (h *transformHandler) decode(w http.ResponseWriter, r *http.Request) (record.Batch, int, error) {
	body, err := decompress(r)
	if err != nil {
		if errors.Is(err, errUnsupportedEncoding) {
			return nil, http.StatusUnsupportedMediaType, err
		}
		return nil, http.StatusBadRequest, err
	}
	defer body.Close()

	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, body, h.maxBody)
	}

	batch, err := record.DecodeBatch(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err)
	}
	return batch, 0, nil
}

func decompress(r *http.Request) (io.ReadCloser, error) {
	switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return r.Body, nil
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		return zr, nil
	case "zstd":
		zr, err := zstd.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd body: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEncoding, enc)
	}
}

// writeBatch encodes the response, compressing with zstd when the client accepts it.
func (h *transformHandler) writeBatch(w http.ResponseWriter, r *http.Request, batch record.Batch) {
	if !acceptsZstd(r.Header.Get("Accept-Encoding")) {
		writeJSON(w, http.StatusOK, batch)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "zstd")
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(http.StatusOK)

	zw, err := zstd.NewWriter(w)
	if err != nil {
		log.Error().Err(err).Msg("zstd writer")
		return
	}
	if err := json.NewEncoder(zw).Encode(batch); err != nil {
		log.Warn().Err(err).Msg("response write failed")
	}
	if err := zw.Close(); err != nil {
		log.Warn().Err(err).Msg("response flush failed")
	}
}

func acceptsZstd(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(name), "zstd") && strings.ReplaceAll(params, " ", "") != "q=0" {
			return true
		}
	}
	return false
}

// track records the outcome; best-effort, only counts and the error kind are stored.
// The write outlives a client disconnect.
func (h *transformHandler) track(ctx context.Context, id string, records int, kind string, start time.Time) {
	if h.tracker == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	req := &request.Request{
		ID:         id,
		PlanID:     h.planID,
		Records:    records,
		State:      request.StateSucceeded,
		ErrorKind:  kind,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if kind != "" {
		req.State = request.StateFailed
	}
	if err := h.tracker.Record(ctx, req); err != nil {
		log.Warn().Err(err).Str("request_id", id).Msg("failed to record request")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
