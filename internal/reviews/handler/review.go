package handler

import (
	"net/http"

	"unistay/internal/reviews/service"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReviewHandler struct {
	service service.ReviewService
	log     *logger.Logger
}

func NewReviewHandler(service service.ReviewService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log,
	}
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ReviewCreate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	review, err := h.service.Create(r.Context(), auth.FromContext(r.Context()), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, review); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReviewHandler) ListForProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForProperty", err)
		return
	}

	reviews, err := h.service.ListForProperty(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListForProperty", err)
		return
	}

	if err := httputil.WriteSuccess(w, reviews); err != nil {
		h.log.Error("failed to write success response", "handler", "ListForProperty", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var response model.ReviewResponse
	if err := httputil.DecodeJSON(r, &response); err != nil {
		h.writeError(w, "Respond", err)
		return
	}

	review, err := h.service.Respond(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &response)
	if err != nil {
		h.writeError(w, "Respond", err)
		return
	}

	if err := httputil.WriteSuccess(w, review); err != nil {
		h.log.Error("failed to write success response", "handler", "Respond", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ReviewHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	status := model.ReviewStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.ReviewPublished, model.ReviewFlagged, model.ReviewHidden:
	default:
		h.writeError(w, "ListAll", apperrors.InvalidInput("status must be one of: published flagged hidden"))
		return
	}

	reviews, total, err := h.service.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, reviews, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReviewHandler) Moderate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var moderation model.ReviewModeration
	if err := httputil.DecodeJSON(r, &moderation); err != nil {
		h.writeError(w, "Moderate", err)
		return
	}

	review, err := h.service.Moderate(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &moderation)
	if err != nil {
		h.writeError(w, "Moderate", err)
		return
	}

	if err := httputil.WriteSuccess(w, review); err != nil {
		h.log.Error("failed to write success response", "handler", "Moderate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReviewHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/reviews", h.Create)
	router.DELETE("/api/reviews/:id", h.Delete)
	router.POST("/api/reviews/:id/response", h.Respond)
	router.GET("/api/properties/:id/reviews", h.ListForProperty)

	router.GET("/api/admin/reviews", h.ListAll)
	router.POST("/api/admin/reviews/:id/moderate", h.Moderate)
}
