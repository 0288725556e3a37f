package handler

import (
	"net/http"

	"unistay/internal/messages/service"
	"unistay/pkg/auth"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MessageHandler struct {
	service service.MessageService
	log     *logger.Logger
}

func NewMessageHandler(service service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		log:     log,
	}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.MessageCreate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Send", err)
		return
	}

	message, err := h.service.Send(r.Context(), auth.FromContext(r.Context()), &input)
	if err != nil {
		h.writeError(w, "Send", err)
		return
	}

	if err := httputil.WriteCreated(w, message); err != nil {
		h.log.Error("failed to write created response", "handler", "Send", "operation", "WriteCreated", "error", err)
	}
}

func (h *MessageHandler) ListThreads(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListThreads", err)
		return
	}

	threads, total, err := h.service.ListThreads(r.Context(), auth.FromContext(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, "ListThreads", err)
		return
	}

	if err := httputil.WritePaginated(w, threads, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListThreads", "operation", "WritePaginated", "error", err)
	}
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	messages, total, err := h.service.ListMessages(r.Context(), auth.FromContext(r.Context()), ps.ByName("thread_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	if err := httputil.WritePaginated(w, messages, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMessages", "operation", "WritePaginated", "error", err)
	}
}

func (h *MessageHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MessageHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/messages", h.Send)
	router.GET("/api/messages/threads", h.ListThreads)
	router.GET("/api/messages/threads/:thread_id", h.ListMessages)
}
