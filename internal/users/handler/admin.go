package handler

import (
	"net/http"
	"strconv"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListUsers", err)
		return
	}

	query := r.URL.Query()
	filter := model.UserFilter{
		Role:  model.Role(query.Get("role")),
		Email: query.Get("email"),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		h.writeError(w, "ListUsers", apperrors.InvalidInput("role must be one of: student owner admin"))
		return
	}
	if filter.Verified, err = optionalBool(r, "verified"); err != nil {
		h.writeError(w, "ListUsers", err)
		return
	}
	if filter.Blacklisted, err = optionalBool(r, "blacklisted"); err != nil {
		h.writeError(w, "ListUsers", err)
		return
	}

	users, total, err := h.service.ListUsers(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListUsers", err)
		return
	}

	if err := httputil.WritePaginated(w, users, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListUsers", "operation", "WritePaginated", "error", err)
	}
}

func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.service.Verify(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}
	h.writeSuccess(w, "Verify", user)
}

func (h *UserHandler) Blacklist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BlacklistRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Blacklist", err)
		return
	}

	user, err := h.service.Blacklist(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Blacklist", err)
		return
	}
	h.writeSuccess(w, "Blacklist", user)
}

func (h *UserHandler) Unblacklist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.service.Unblacklist(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Unblacklist", err)
		return
	}
	h.writeSuccess(w, "Unblacklist", user)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.RoleChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "SetRole", err)
		return
	}

	user, err := h.service.SetRole(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &change)
	if err != nil {
		h.writeError(w, "SetRole", err)
		return
	}
	h.writeSuccess(w, "SetRole", user)
}

func (h *UserHandler) ListPromotions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListPromotions", err)
		return
	}

	status := model.PromotionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.PromotionPending, model.PromotionApproved, model.PromotionRejected:
	default:
		h.writeError(w, "ListPromotions", apperrors.InvalidInput("status must be one of: pending approved rejected"))
		return
	}

	requests, total, err := h.service.ListPromotions(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, "ListPromotions", err)
		return
	}

	if err := httputil.WritePaginated(w, requests, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListPromotions", "operation", "WritePaginated", "error", err)
	}
}

func (h *UserHandler) ApprovePromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var review model.PromotionReview
	if err := decodeOptional(r, &review); err != nil {
		h.writeError(w, "ApprovePromotion", err)
		return
	}

	req, err := h.service.ApprovePromotion(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &review)
	if err != nil {
		h.writeError(w, "ApprovePromotion", err)
		return
	}
	h.writeSuccess(w, "ApprovePromotion", req)
}

func (h *UserHandler) RejectPromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var review model.PromotionReview
	if err := decodeOptional(r, &review); err != nil {
		h.writeError(w, "RejectPromotion", err)
		return
	}

	req, err := h.service.RejectPromotion(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &review)
	if err != nil {
		h.writeError(w, "RejectPromotion", err)
		return
	}
	h.writeSuccess(w, "RejectPromotion", req)
}

func optionalBool(r *http.Request, key string) (*bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return &v, nil
}

func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httputil.DecodeJSON(r, dst)
}
