package handler

import (
	"net/http"

	"unistay/internal/users/service"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	AvatarPath = "/api/me/avatar"

	// AvatarField is the multipart form field carrying the image.
	AvatarField = "avatar"
)

type UserHandler struct {
	service   service.UserService
	twoFactor service.TwoFactorService
	avatars   service.AvatarService
	log       *logger.Logger
}

func NewUserHandler(
	service service.UserService,
	twoFactor service.TwoFactorService,
	avatars service.AvatarService,
	log *logger.Logger,
) *UserHandler {
	return &UserHandler{
		service:   service,
		twoFactor: twoFactor,
		avatars:   avatars,
		log:       log,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.service.Me(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}
	h.writeSuccess(w, "Me", user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.ProfileUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), auth.FromContext(r.Context()), &update)
	if err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}
	h.writeSuccess(w, "UpdateProfile", user)
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		h.writeError(w, "UploadAvatar", apperrors.InvalidInput("Expected a multipart form with an "+AvatarField+" file"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile(AvatarField)
	if err != nil {
		h.writeError(w, "UploadAvatar", apperrors.InvalidInput("Missing "+AvatarField+" file"))
		return
	}
	defer file.Close()

	user, err := h.avatars.Upload(r.Context(), auth.FromContext(r.Context()), file)
	if err != nil {
		h.writeError(w, "UploadAvatar", err)
		return
	}
	h.writeSuccess(w, "UploadAvatar", user)
}

func (h *UserHandler) RequestPromotion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.PromotionCreate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "RequestPromotion", err)
		return
	}

	req, err := h.service.RequestPromotion(r.Context(), auth.FromContext(r.Context()), &input)
	if err != nil {
		h.writeError(w, "RequestPromotion", err)
		return
	}

	if err := httputil.WriteCreated(w, req); err != nil {
		h.log.Error("failed to write created response", "handler", "RequestPromotion", "operation", "WriteCreated", "error", err)
	}
}

func (h *UserHandler) MyPromotion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.service.MyPromotion(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, "MyPromotion", err)
		return
	}
	h.writeSuccess(w, "MyPromotion", req)
}

func (h *UserHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	setup, err := h.twoFactor.Setup(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, "SetupTwoFactor", err)
		return
	}
	h.writeSuccess(w, "SetupTwoFactor", setup)
}

func (h *UserHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var code model.TwoFactorCode
	if err := httputil.DecodeJSON(r, &code); err != nil {
		h.writeError(w, "EnableTwoFactor", err)
		return
	}

	enabled, err := h.twoFactor.Enable(r.Context(), auth.FromContext(r.Context()), &code)
	if err != nil {
		h.writeError(w, "EnableTwoFactor", err)
		return
	}

	if err := httputil.WriteMessage(w, "Two-factor authentication enabled. Store these backup codes safely.", enabled); err != nil {
		h.log.Error("failed to write message response", "handler", "EnableTwoFactor", "operation", "WriteMessage", "error", err)
	}
}

func (h *UserHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var code model.TwoFactorCode
	if err := httputil.DecodeJSON(r, &code); err != nil {
		h.writeError(w, "DisableTwoFactor", err)
		return
	}

	if err := h.twoFactor.Disable(r.Context(), auth.FromContext(r.Context()), &code); err != nil {
		h.writeError(w, "DisableTwoFactor", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *UserHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var code model.TwoFactorCode
	if err := httputil.DecodeJSON(r, &code); err != nil {
		h.writeError(w, "VerifyTwoFactor", err)
		return
	}

	if err := h.twoFactor.Verify(r.Context(), auth.FromContext(r.Context()), &code); err != nil {
		h.writeError(w, "VerifyTwoFactor", err)
		return
	}

	if err := httputil.WriteMessage(w, "Code verified", nil); err != nil {
		h.log.Error("failed to write message response", "handler", "VerifyTwoFactor", "operation", "WriteMessage", "error", err)
	}
}

func (h *UserHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/me", h.Me)
	router.PATCH("/api/me", h.UpdateProfile)
	router.POST(AvatarPath, h.UploadAvatar)
	router.GET("/api/me/promotion", h.MyPromotion)
	router.POST("/api/me/promotion", h.RequestPromotion)
	router.POST("/api/me/2fa/setup", h.SetupTwoFactor)
	router.POST("/api/me/2fa/enable", h.EnableTwoFactor)
	router.POST("/api/me/2fa/disable", h.DisableTwoFactor)
	router.POST("/api/me/2fa/verify", h.VerifyTwoFactor)

	router.GET("/api/admin/users", h.ListUsers)
	router.POST("/api/admin/users/:id/verify", h.Verify)
	router.POST("/api/admin/users/:id/blacklist", h.Blacklist)
	router.POST("/api/admin/users/:id/unblacklist", h.Unblacklist)
	router.PATCH("/api/admin/users/:id/role", h.SetRole)
	router.GET("/api/admin/promotions", h.ListPromotions)
	router.POST("/api/admin/promotions/:id/approve", h.ApprovePromotion)
	router.POST("/api/admin/promotions/:id/reject", h.RejectPromotion)
}
