package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/lapboard/lapboard/server/internal/board"
	"github.com/lapboard/lapboard/server/internal/store"
)

// maxBodyBytes bounds request bodies; the largest legitimate body is a car
// name.
const maxBodyBytes = 64 << 10

// Board is the subset of *board.Service the handlers use.
type Board interface {
	Snapshot() board.Snapshot
	HasCar(id string) bool
	CarCount() int
	RegisterCar(name, color string) (store.Car, error)
	RemoveCar(id string) error
	RecordTime(id string, raw any) (board.Recorded, error)
	DeleteTime(id string, index int) error
}

// Handler is the HTTP handler for the lapboard API.
type Handler struct {
	board  Board
	router chi.Router
	opts   options
}

type options struct {
	ws          http.Handler
	metrics     http.Handler
	publicDir   string
	corsOrigins []string
	observers   func() int
}

// Option configures the handler.
type Option func(*options)

// WithWebSocket mounts h at /ws.
func WithWebSocket(h http.Handler) Option {
	return func(o *options) { o.ws = h }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithPublicDir serves static files from dir for every unmatched GET.
func WithPublicDir(dir string) Option {
	return func(o *options) { o.publicDir = dir }
}

// WithCORSOrigins sets the allowed CORS origins. The default is "*".
func WithCORSOrigins(origins []string) Option {
	return func(o *options) { o.corsOrigins = origins }
}

// WithObserverCount reports the connected observer count on /healthz.
func WithObserverCount(fn func() int) Option {
	return func(o *options) { o.observers = fn }
}

// New creates a Handler wired to b and registers all routes.
func New(b Board, opts ...Option) http.Handler {
	o := options{corsOrigins: []string{"*"}}
	for _, fn := range opts {
		fn(&o)
	}
	h := &Handler{board: b, router: chi.NewRouter(), opts: o}

	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: o.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/cars", h.createCar)
		r.Delete("/cars/{id}", h.deleteCar)
		r.Post("/times/{carId}", h.recordTime)
		r.Delete("/times/{carId}/{index}", h.deleteTime)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			jsonErr(w, http.StatusNotFound, "not found")
		})
	})
	r.Get("/healthz", h.health)

	if o.ws != nil {
		r.Handle("/ws", o.ws)
	}
	if o.metrics != nil {
		r.Handle("/metrics", o.metrics)
	}
	if o.publicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(o.publicDir)))
	} else {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			jsonErr(w, http.StatusNotFound, "not found")
		})
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// state returns GET /api/state, the full snapshot.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.board.Snapshot())
}

// createCar handles POST /api/cars.
func (h *Handler) createCar(w http.ResponseWriter, r *http.Request) {
	var req createCarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, ok := req.Name.(string)
	if !ok {
		jsonErr(w, http.StatusBadRequest, "invalid name")
		return
	}
	var color string
	switch c := req.Color.(type) {
	case nil:
	case string:
		color = c
	default:
		jsonErr(w, http.StatusBadRequest, "invalid color")
		return
	}

	car, err := h.board.RegisterCar(name, color)
	if err != nil {
		if errors.Is(err, board.ErrInvalidInput) {
			jsonErr(w, http.StatusBadRequest, "invalid name")
			return
		}
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, car)
}

// deleteCar handles DELETE /api/cars/{id}.
func (h *Handler) deleteCar(w http.ResponseWriter, r *http.Request) {
	if err := h.board.RemoveCar(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, okResponse{OK: true})
}

// recordTime handles POST /api/times/{carId}.
func (h *Handler) recordTime(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "carId")
	if !h.board.HasCar(carID) {
		writeError(w, board.ErrNotFound)
		return
	}
	var req recordTimeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.board.RecordTime(carID, req.Time)
	if err != nil {
		if errors.Is(err, board.ErrInvalidInput) {
			jsonErr(w, http.StatusBadRequest, "invalid time: use milliseconds, MM:SS.mmm or SS.mmm")
			return
		}
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, rec)
}

// deleteTime handles DELETE /api/times/{carId}/{index}. The index addresses
// the car's lap list as it is when the request is handled.
func (h *Handler) deleteTime(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "carId")
	if !h.board.HasCar(carID) {
		writeError(w, board.ErrNotFound)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid index")
		return
	}

	if err := h.board.DeleteTime(carID, index); err != nil {
		if errors.Is(err, board.ErrOutOfRange) {
			jsonErr(w, http.StatusBadRequest, "invalid index")
			return
		}
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, okResponse{OK: true})
}

// health returns GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Cars: h.board.CarCount()}
	if h.opts.observers != nil {
		resp.Observers = h.opts.observers()
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

// decodeBody decodes a JSON body into v. An empty body leaves v zero. It
// writes a 400 and returns false on malformed JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	jsonErr(w, http.StatusBadRequest, "invalid JSON body")
	return false
}

// writeError maps board errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "car not found")
	case errors.Is(err, board.ErrOutOfRange):
		jsonErr(w, http.StatusBadRequest, "invalid index")
	case errors.Is(err, board.ErrInvalidInput):
		jsonErr(w, http.StatusBadRequest, err.Error())
	default:
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
