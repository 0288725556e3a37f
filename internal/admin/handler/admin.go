package handler

import (
	"net/http"

	"unistay/internal/admin/service"
	"unistay/pkg/auth"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AdminHandler struct {
	service service.AdminService
	log     *logger.Logger
}

func NewAdminHandler(service service.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		log:     log,
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.Stats(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AdminHandler) ReconcileOccupancy(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.service.ReconcileOccupancy(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, "ReconcileOccupancy", err)
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "ReconcileOccupancy", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/admin/stats", h.Stats)
	router.POST("/api/admin/occupancy/reconcile", h.ReconcileOccupancy)
}
