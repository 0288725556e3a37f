package handler

import (
	"net/http"

	"unistay/internal/properties/service"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PropertyHandler struct {
	service service.PropertyService
	log     *logger.Logger
}

func NewPropertyHandler(service service.PropertyService, log *logger.Logger) *PropertyHandler {
	return &PropertyHandler{
		service: service,
		log:     log,
	}
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.PropertyCreate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	property, err := h.service.Create(r.Context(), auth.FromContext(r.Context()), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, property); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	query := r.URL.Query()
	search := model.PropertySearch{
		City:       query.Get("city"),
		University: query.Get("university"),
		RoomType:   model.RoomType(query.Get("room_type")),
	}
	if search.MinPrice, err = httputil.QueryFloat(r, "min_price"); err != nil {
		h.writeError(w, "Search", err)
		return
	}
	if search.MaxPrice, err = httputil.QueryFloat(r, "max_price"); err != nil {
		h.writeError(w, "Search", err)
		return
	}
	if search.AvailableOnly, err = httputil.QueryBool(r, "available"); err != nil {
		h.writeError(w, "Search", err)
		return
	}

	properties, total, err := h.service.Search(r.Context(), search, limit, offset)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, properties, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	property, err := h.service.Get(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, property); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PropertyHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.service.Availability(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch model.PropertyUpdate
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	property, err := h.service.Update(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, property); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PropertyHandler) Archive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Archive(r.Context(), auth.FromContext(r.Context()), ps.ByName("id")); err != nil {
		h.writeError(w, "Archive", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	properties, total, err := h.service.ListMine(r.Context(), auth.FromContext(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, properties, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *PropertyHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	status := model.PropertyStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.PropertyPending, model.PropertyApproved, model.PropertyRejected, model.PropertyArchived:
	default:
		h.writeError(w, "ListAll", apperrors.InvalidInput("status must be one of: pending approved rejected archived"))
		return
	}

	properties, total, err := h.service.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, properties, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *PropertyHandler) Moderate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var decision model.ModerationDecision
	if err := httputil.DecodeJSON(r, &decision); err != nil {
		h.writeError(w, "Moderate", err)
		return
	}

	property, err := h.service.Moderate(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &decision)
	if err != nil {
		h.writeError(w, "Moderate", err)
		return
	}

	if err := httputil.WriteSuccess(w, property); err != nil {
		h.log.Error("failed to write success response", "handler", "Moderate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PropertyHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PropertyHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/properties", h.Search)
	router.POST("/api/properties", h.Create)
	router.GET("/api/properties/:id", h.Get)
	router.PATCH("/api/properties/:id", h.Update)
	router.DELETE("/api/properties/:id", h.Archive)
	router.GET("/api/properties/:id/availability", h.Availability)

	router.GET("/api/owner/properties", h.ListMine)

	router.GET("/api/admin/properties", h.ListAll)
	router.POST("/api/admin/properties/:id/moderate", h.Moderate)
}
