package handler

import (
	"net/http"

	"unistay/internal/bookings/service"
	"unistay/pkg/auth"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.BookingCreate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), auth.FromContext(r.Context()), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Get(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}
	h.writeBooking(w, "Get", booking)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	status := model.BookingStatus(r.URL.Query().Get("status"))
	bookings, total, err := h.service.ListForStudent(r.Context(), auth.FromContext(r.Context()), status, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}
	h.writePaginated(w, "ListMine", bookings, total, limit, offset)
}

func (h *BookingHandler) ListForOwner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForOwner", err)
		return
	}

	bookings, total, err := h.service.ListForOwner(r.Context(), auth.FromContext(r.Context()), filterFrom(r), limit, offset)
	if err != nil {
		h.writeError(w, "ListForOwner", err)
		return
	}
	h.writePaginated(w, "ListForOwner", bookings, total, limit, offset)
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	filter := filterFrom(r)
	filter.StudentID = r.URL.Query().Get("student_id")
	filter.OwnerID = r.URL.Query().Get("owner_id")

	bookings, total, err := h.service.ListAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}
	h.writePaginated(w, "ListAll", bookings, total, limit, offset)
}

func (h *BookingHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Accept(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}
	h.writeBooking(w, "Accept", booking)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.BookingReason
	if err := decodeOptional(r, &input); err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	booking, err := h.service.Reject(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}
	h.writeBooking(w, "Reject", booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.BookingReason
	if err := decodeOptional(r, &input); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	h.writeBooking(w, "Cancel", booking)
}

func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CheckIn(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}
	h.writeBooking(w, "CheckIn", booking)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Complete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}
	h.writeBooking(w, "Complete", booking)
}

func (h *BookingHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := h.service.CreatePaymentOrder(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CreatePaymentOrder", err)
		return
	}

	if err := httputil.WriteCreated(w, order); err != nil {
		h.log.Error("failed to write created response", "handler", "CreatePaymentOrder", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.PaymentVerification
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "VerifyPayment", err)
		return
	}

	booking, err := h.service.VerifyPayment(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "VerifyPayment", err)
		return
	}
	h.writeBooking(w, "VerifyPayment", booking)
}

func (h *BookingHandler) AdminSetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.AdminBookingUpdate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "AdminSetStatus", err)
		return
	}

	booking, err := h.service.AdminSetStatus(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "AdminSetStatus", err)
		return
	}
	h.writeBooking(w, "AdminSetStatus", booking)
}

func (h *BookingHandler) AdminDelete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.AdminDelete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id")); err != nil {
		h.writeError(w, "AdminDelete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func filterFrom(r *http.Request) model.BookingFilter {
	q := r.URL.Query()
	return model.BookingFilter{
		Status:     model.BookingStatus(q.Get("status")),
		PropertyID: q.Get("property_id"),
	}
}

// decodeOptional decodes a JSON body when one was sent.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httputil.DecodeJSON(r, dst)
}

func (h *BookingHandler) writeBooking(w http.ResponseWriter, handler string, booking *model.Booking) {
	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writePaginated(w http.ResponseWriter, handler string, bookings []*model.Booking, total int64, limit int, offset int64) {
	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", handler, "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/bookings", h.ListMine)
	router.POST("/api/bookings", h.Create)
	router.GET("/api/bookings/:id", h.Get)
	router.POST("/api/bookings/:id/cancel", h.Cancel)
	router.POST("/api/bookings/:id/payment-order", h.CreatePaymentOrder)
	router.POST("/api/bookings/:id/verify-payment", h.VerifyPayment)

	router.GET("/api/owner/bookings", h.ListForOwner)
	router.POST("/api/owner/bookings/:id/accept", h.Accept)
	router.POST("/api/owner/bookings/:id/reject", h.Reject)
	router.POST("/api/owner/bookings/:id/checkin", h.CheckIn)
	router.POST("/api/owner/bookings/:id/complete", h.Complete)

	router.GET("/api/admin/bookings", h.ListAll)
	router.PATCH("/api/admin/bookings/:id", h.AdminSetStatus)
	router.DELETE("/api/admin/bookings/:id", h.AdminDelete)
}
