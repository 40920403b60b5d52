// Package handlers implements the HTTP surface the dashboard reads the
// maze feed from.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/awsford/deeplens-maze-solver/common/httputil"
	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/feed"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

// FeedHandler serves the maze feed as a list and as an event stream.
type FeedHandler struct {
	store     *feed.Store
	logger    *slog.Logger
	heartbeat time.Duration
}

// ListResponse is the body of GET /api/mazes.
type ListResponse struct {
	Data []models.MazeRecord `json:"data"`
	Meta ListMeta            `json:"meta"`
}

// ListMeta carries the feed size, which may exceed len(Data) when limited.
type ListMeta struct {
	Total int `json:"total"`
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(store *feed.Store, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		store:     store,
		logger:    logger.With(slog.String(logging.FieldComponent, "feed-handler")),
		heartbeat: 15 * time.Second,
	}
}

// List handles GET /api/mazes. Records are newest first; ?limit=N keeps the
// first N.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.store.List()
	total := len(records)

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Data: records,
		Meta: ListMeta{Total: total},
	})
}

// Stream handles GET /api/mazes/stream. It sends the current feed oldest
// first, then every new record, each as a "maze" event.
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	listener, snapshot, err := h.store.Attach()
	if errors.Is(err, feed.ErrTooManyListeners) {
		httputil.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer h.store.Detach(listener)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, record := range snapshot {
		if err := writeEvent(w, record); err != nil {
			h.logger.Error("failed to write feed snapshot", logging.Error(err))
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case record, open := <-listener.C:
			if !open {
				return
			}
			if err := writeEvent(w, record); err != nil {
				h.logger.Debug("feed stream closed", logging.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			if dropped := listener.Dropped(); dropped > 0 {
				h.logger.Warn("feed stream client fell behind", slog.Uint64("dropped", dropped))
			}
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, record models.MazeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: maze\ndata: %s\n\n", record.Sequence, data)
	return err
}
