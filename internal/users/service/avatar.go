package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	auditservice "unistay/internal/audit/service"
	"unistay/internal/users/repository"
	"unistay/pkg/auth"
	"unistay/pkg/breaker"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/storage"

	"github.com/gabriel-vasile/mimetype"
	"go.mongodb.org/mongo-driver/bson"
)

var avatarTypes = []string{"image/jpeg", "image/png", "image/webp"}

type AvatarService interface {
	Upload(ctx context.Context, caller *auth.Principal, r io.Reader) (*model.User, error)
}

type avatarService struct {
	repo     repository.UserRepository
	uploader storage.Uploader
	folder   string
	maxBytes int
	audit    auditservice.Recorder
	log      *logger.Logger
}

func NewAvatarService(
	repo repository.UserRepository,
	uploader storage.Uploader,
	folder string,
	maxBytes int,
	audit auditservice.Recorder,
	log *logger.Logger,
) AvatarService {
	return &avatarService{
		repo:     repo,
		uploader: uploader,
		folder:   folder,
		maxBytes: maxBytes,
		audit:    audit,
		log:      log,
	}
}

// Upload stores the image under the user's id, so a new avatar replaces the
// previous object. The content type is sniffed, not taken from the client.
func (s *avatarService) Upload(ctx context.Context, caller *auth.Principal, r io.Reader) (*model.User, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(s.maxBytes)+1))
	if err != nil {
		return nil, apperrors.InvalidInput("Failed to read avatar upload")
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("Avatar file is empty")
	}
	if len(data) > s.maxBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Avatar must be at most %d bytes", s.maxBytes))
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), avatarTypes...) {
		s.log.Warn("Rejected avatar upload", "user_id", caller.UserID, "mime", mime.String())
		return nil, apperrors.InvalidInput("Avatar must be a JPEG, PNG or WebP image")
	}

	object, err := s.uploader.Upload(ctx, bytes.NewReader(data), s.folder, caller.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) || breaker.Rejected(err) {
			return nil, apperrors.Unavailable("avatar storage")
		}
		s.log.Error("Avatar upload failed", "user_id", caller.UserID, "error", err)
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "Failed to store avatar", http.StatusBadGateway)
	}

	user, err := s.repo.Update(ctx, caller.UserID, bson.M{"avatar_url": object.URL})
	if err != nil {
		s.log.Error("Failed to save avatar URL", "user_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to save avatar", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "user.avatar", "user", caller.UserID, map[string]any{
		"mime":  mime.String(),
		"bytes": len(data),
	}))
	s.log.Info("Avatar uploaded", "user_id", caller.UserID, "public_id", object.PublicID)
	return user, nil
}
