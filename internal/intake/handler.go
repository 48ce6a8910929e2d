package intake

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/appointment-intake/internal/archive"
	httpmiddleware "github.com/wolfman30/appointment-intake/internal/http/middleware"
	"github.com/wolfman30/appointment-intake/internal/observability/metrics"
	"github.com/wolfman30/appointment-intake/internal/ocr"
	"github.com/wolfman30/appointment-intake/internal/records"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

const (
	defaultMaxUploadBytes = 10 << 20
)

// TextRequest is the JSON body accepted by ProcessAppointment.
type TextRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

// HandlerConfig wires a Handler. Records, Archive and Gatherer are optional.
type HandlerConfig struct {
	Service        Processor
	Records        records.Repository
	Archive        *archive.Store
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
	Logger         *logging.Logger
}

// Handler serves the intake endpoint and its admin views.
type Handler struct {
	service   Processor
	records   records.Repository
	archive   *archive.Store
	gatherer  prometheus.Gatherer
	maxUpload int64
	validate  *validator.Validate
	logger    *logging.Logger
}

// NewHandler creates a new intake handler
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Service == nil {
		panic("intake: service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		service:   cfg.Service,
		records:   cfg.Records,
		archive:   cfg.Archive,
		gatherer:  cfg.Gatherer,
		maxUpload: cfg.MaxUploadBytes,
		validate:  validator.New(),
		logger:    cfg.Logger,
	}
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProcessAppointment handles POST /process-appointment.
func (h *Handler) ProcessAppointment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	req, status, err := h.decode(r)
	if err != nil {
		h.logger.Warn("rejected intake request", "error", err, "status", status)
		writeJSON(w, status, errorResponse{Status: "error", Message: err.Error()})
		return
	}
	req.RequestID = httpmiddleware.RequestIDFromContext(r.Context())

	out, err := h.service.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to process intake", "request_id", req.RequestID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, out.Body)
}

var (
	errUnsupportedImage = errors.New("unsupported image type")
	errTooLarge         = errors.New("upload too large")
	errInvalidBody      = errors.New("invalid request body")
	errTextTooLong      = errors.New("text too long")
)

// decode reads a multipart upload, a form, or a JSON body.
func (h *Handler) decode(r *http.Request) (Request, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return Request{}, statusForBodyError(err), bodyError(err)
		}
		req := Request{Text: r.FormValue("text")}
		file, header, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return req, http.StatusBadRequest, h.checkText(req.Text)
			}
			return Request{}, http.StatusBadRequest, errInvalidBody
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return Request{}, statusForBodyError(err), bodyError(err)
		}
		if len(data) == 0 {
			return req, http.StatusBadRequest, h.checkText(req.Text)
		}
		mimeType := header.Header.Get("Content-Type")
		if !ocr.IsSupported(mimeType) {
			mimeType = http.DetectContentType(data)
		}
		if !ocr.IsSupported(mimeType) {
			return Request{}, http.StatusUnsupportedMediaType, errUnsupportedImage
		}
		req.Image = data
		req.MIMEType = strings.ToLower(strings.TrimSpace(mimeType))
		return req, 0, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Request{}, statusForBodyError(err), bodyError(err)
		}
		text := r.PostFormValue("text")
		return Request{Text: text}, http.StatusBadRequest, h.checkText(text)

	default:
		var body TextRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return Request{}, statusForBodyError(err), bodyError(err)
		}
		return Request{Text: body.Text}, http.StatusBadRequest, h.checkText(body.Text)
	}
}

func (h *Handler) checkText(text string) error {
	if err := h.validate.Struct(TextRequest{Text: text}); err != nil {
		return errTextTooLong
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errTooLarge
	}
	return errInvalidBody
}

func statusForBodyError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// ListIntakesResponse is the response for listing intakes
type ListIntakesResponse struct {
	Intakes []records.Record `json:"intakes"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListIntakes handles GET /admin/intakes.
func (h *Handler) ListIntakes(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "records unavailable"})
		return
	}
	q := r.URL.Query()
	filter := records.ListFilter{Status: strings.TrimSpace(q.Get("status"))}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid limit"})
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid offset"})
		return
	}
	if err := h.validate.Struct(filter); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid filter"})
		return
	}

	list, err := h.records.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list intakes", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, ListIntakesResponse{
		Intakes: list,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// GetIntake handles GET /admin/intakes/{id}.
func (h *Handler) GetIntake(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetIntakeImage handles GET /admin/intakes/{id}/image.
func (h *Handler) GetIntakeImage(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if rec.ArchiveKey == "" || !h.archive.Enabled() {
		writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: "image not archived"})
		return
	}
	data, contentType, err := h.archive.Fetch(r.Context(), rec.ArchiveKey)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: "image not archived"})
			return
		}
		h.logger.Error("failed to fetch archived image", "intake_id", rec.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Status: "error", Message: "archive unavailable"})
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	gatherer := h.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	writeJSON(w, http.StatusOK, metrics.TakeSnapshot(gatherer))
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*records.Record, bool) {
	if h.records == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "records unavailable"})
		return nil, false
	}
	id := chi.URLParam(r, "id")
	rec, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: "intake not found"})
			return nil, false
		}
		h.logger.Error("failed to get intake", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Internal Server Error"})
		return nil, false
	}
	return rec, true
}

func queryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
