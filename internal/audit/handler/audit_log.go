package handler

import (
	"net/http"
	"time"

	"unistay/internal/audit/service"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AuditLogHandler struct {
	service service.AuditService
	log     *logger.Logger
}

func NewAuditLogHandler(service service.AuditService, log *logger.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		service: service,
		log:     log,
	}
}

func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := model.AuditFilter{
		ActorID:      query.Get("actor_id"),
		Action:       query.Get("action"),
		ResourceType: query.Get("resource_type"),
	}
	if since := query.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.writeError(w, "List", apperrors.InvalidInput("since must be an RFC3339 timestamp"))
			return
		}
		filter.Since = &t
	}

	entries, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, entries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *AuditLogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuditLogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/admin/audit-logs", h.List)
}
