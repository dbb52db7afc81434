package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/robmcl4/howveyoubin/internal/inventory/application"
	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
	"github.com/robmcl4/howveyoubin/pkg/idempotency"
	"github.com/robmcl4/howveyoubin/pkg/tracing"
)

// reserveTimeout bounds lock waits inside one reservation transaction.
const reserveTimeout = 5 * time.Second

type Handler struct {
	log    *slog.Logger
	coord  *application.Coordinator
	bins   *application.BinCounter
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, coord *application.Coordinator, bins *application.BinCounter, idem *idempotency.Store) *Handler {
	return &Handler{
		log:    log,
		coord:  coord,
		bins:   bins,
		idem:   idem,
		tracer: otel.Tracer("reserve-http"),
	}
}

type reserveReq struct {
	Standards   int    `json:"standards"`
	Doubles     int    `json:"doubles"`
	Minimalists int    `json:"minimalists"`
	Salads      int    `json:"salads"`
	RequestID   string `json:"request_id,omitempty"`
}

type reserveResp struct {
	Status        string                            `json:"status"`
	ReservationID string                            `json:"reservation_id,omitempty"`
	Consumed      map[domain.Kind][]domain.Consumed `json:"consumed,omitempty"`
	Kind          domain.Kind                       `json:"kind,omitempty"`
	Error         string                            `json:"error,omitempty"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/reserve", h.reserve)
	r.Get("/bins", h.getBins)
	r.Post("/bins/refresh", h.refreshBins)

	return r
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReserveInventory")
	defer span.End()

	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, reserveResp{Status: "rejected", Error: "invalid body"})
		return
	}

	if h.idem != nil && req.RequestID != "" {
		seen, err := h.idem.Seen(ctx, h.idem.Key(req.RequestID))
		if err != nil {
			h.log.Error("idempotency check failed", "request_id", req.RequestID, "err", err)
		} else if seen {
			writeJSON(w, http.StatusConflict, reserveResp{Status: "duplicate", Error: "request already processed"})
			return
		}
	}

	traceparent := r.Header.Get(tracing.TraceparentHeader)
	if traceparent == "" {
		traceparent = tracing.Traceparent(ctx)
	}

	order := domain.Order{
		Standards:   req.Standards,
		Doubles:     req.Doubles,
		Minimalists: req.Minimalists,
		Salads:      req.Salads,
	}

	ctx, cancel := context.WithTimeout(ctx, reserveTimeout)
	defer cancel()

	res, err := h.coord.Reserve(ctx, order, traceparent)
	if err != nil {
		var short domain.InsufficientStockError
		switch {
		case errors.As(err, &short):
			writeJSON(w, http.StatusConflict, reserveResp{Status: "rejected", Kind: short.Kind, Error: short.Error()})
		case errors.Is(err, application.ErrInvalidOrder):
			writeJSON(w, http.StatusBadRequest, reserveResp{Status: "rejected", Error: err.Error()})
		default:
			writeJSON(w, http.StatusServiceUnavailable, reserveResp{Status: "aborted", Error: "store failure"})
		}
		return
	}

	writeJSON(w, http.StatusOK, reserveResp{
		Status:        "reserved",
		ReservationID: res.ID,
		Consumed:      res.Consumed,
	})
}

func (h *Handler) getBins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bins.Current())
}

func (h *Handler) refreshBins(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefreshBinsEndpoint")
	defer span.End()

	writeJSON(w, http.StatusOK, h.bins.Refresh(ctx))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
