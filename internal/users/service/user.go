package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	auditservice "unistay/internal/audit/service"
	userserrors "unistay/internal/users/errors"
	"unistay/internal/users/repository"
	"unistay/internal/users/validator"
	"unistay/pkg/auth"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserService interface {
	ResolveSession(ctx context.Context, claims *auth.SessionClaims) (*model.User, error)
	Me(ctx context.Context, caller *auth.Principal) (*model.User, error)
	UpdateProfile(ctx context.Context, caller *auth.Principal, update *model.ProfileUpdate) (*model.User, error)
	RequestPromotion(ctx context.Context, caller *auth.Principal, input *model.PromotionCreate) (*model.OwnerPromotionRequest, error)
	MyPromotion(ctx context.Context, caller *auth.Principal) (*model.OwnerPromotionRequest, error)

	ListUsers(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error)
	Verify(ctx context.Context, caller *auth.Principal, id string) (*model.User, error)
	Blacklist(ctx context.Context, caller *auth.Principal, id string, req *model.BlacklistRequest) (*model.User, error)
	Unblacklist(ctx context.Context, caller *auth.Principal, id string) (*model.User, error)
	SetRole(ctx context.Context, caller *auth.Principal, id string, change *model.RoleChange) (*model.User, error)
	ListPromotions(ctx context.Context, status model.PromotionStatus, limit int, offset int64) ([]*model.OwnerPromotionRequest, int64, error)
	ApprovePromotion(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error)
	RejectPromotion(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error)
}

type userService struct {
	repo       repository.UserRepository
	promotions repository.PromotionRepository
	validator  *validator.UserValidator
	audit      auditservice.Recorder
	log        *logger.Logger
	now        func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	promotions repository.PromotionRepository,
	validator *validator.UserValidator,
	audit auditservice.Recorder,
	log *logger.Logger,
) UserService {
	return &userService{
		repo:       repo,
		promotions: promotions,
		validator:  validator,
		audit:      audit,
		log:        log,
		now:        mongotx.Now,
	}
}

// ResolveSession returns the stored user for a verified session, creating a
// student account on first sign-in.
func (s *userService) ResolveSession(ctx context.Context, claims *auth.SessionClaims) (*model.User, error) {
	email := sanitizer.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, apperrors.Unauthorized("Session has no email")
	}

	name := sanitizer.SanitizeLine(claims.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user, err := s.repo.UpsertOnSignIn(ctx, email, name)
	if err != nil {
		s.log.WithContext(ctx).Error("Failed to upsert user on sign-in", "email", email, "error", err)
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *userService) Me(ctx context.Context, caller *auth.Principal) (*model.User, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}
	return s.find(ctx, caller.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, caller *auth.Principal, update *model.ProfileUpdate) (*model.User, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	if update.Name != nil {
		*update.Name = sanitizer.SanitizeLine(*update.Name)
	}
	if err := s.validator.ValidateProfile(update); err != nil {
		return nil, validation.ToAppError("Profile validation failed", err)
	}

	fields := bson.M{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if len(fields) == 0 {
		return s.find(ctx, caller.UserID)
	}

	user, err := s.repo.Update(ctx, caller.UserID, fields)
	if err != nil {
		return nil, s.translate(err, caller.UserID, "update")
	}

	s.log.Info("Profile updated", "user_id", caller.UserID)
	return user, nil
}

func (s *userService) RequestPromotion(ctx context.Context, caller *auth.Principal, input *model.PromotionCreate) (*model.OwnerPromotionRequest, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}
	if !caller.Is(model.RoleStudent) {
		return nil, apperrors.Conflict("Only students can request owner access")
	}

	input.BusinessName = sanitizer.SanitizeLine(input.BusinessName)
	input.Message = sanitizer.SanitizeText(input.Message)
	if err := s.validator.ValidatePromotion(input); err != nil {
		return nil, validation.ToAppError("Promotion request validation failed", err)
	}

	req := &model.OwnerPromotionRequest{
		UserID:       caller.UserID,
		BusinessName: input.BusinessName,
		Phone:        input.Phone,
		Message:      input.Message,
		Status:       model.PromotionPending,
	}
	if err := s.promotions.Create(ctx, req); err != nil {
		if errors.Is(err, userserrors.ErrPendingPromotion) {
			return nil, apperrors.Conflict("You already have a pending owner request")
		}
		s.log.Error("Failed to create promotion request", "user_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to create promotion request", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "promotion.request", "promotion", req.ID, nil))
	s.log.Info("Owner promotion requested", "id", req.ID, "user_id", caller.UserID)
	return req, nil
}

func (s *userService) MyPromotion(ctx context.Context, caller *auth.Principal) (*model.OwnerPromotionRequest, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	req, err := s.promotions.FindLatestByUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrPromotionNotFound) {
			return nil, apperrors.NotFound("Promotion request")
		}
		return nil, apperrors.Internal("Failed to retrieve promotion request", err)
	}
	return req, nil
}

func (s *userService) ListUsers(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error) {
	filter.Email = sanitizer.NormalizeEmail(filter.Email)

	var total int64
	var users []*model.User
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		users, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.log.WithContext(ctx).Error("Failed to count users", "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count users", errCount)
	}
	if errFind != nil {
		s.log.WithContext(ctx).Error("Failed to list users", "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve users", errFind)
	}

	return users, total, nil
}

func (s *userService) Verify(ctx context.Context, caller *auth.Principal, id string) (*model.User, error) {
	return s.adminUpdate(ctx, caller, id, "user.verify", bson.M{"verified": true}, nil)
}

func (s *userService) Blacklist(ctx context.Context, caller *auth.Principal, id string, req *model.BlacklistRequest) (*model.User, error) {
	req.Reason = sanitizer.SanitizeText(req.Reason)
	if err := s.validator.ValidateBlacklist(req); err != nil {
		return nil, validation.ToAppError("Blacklist validation failed", err)
	}
	if caller != nil && caller.UserID == id {
		return nil, apperrors.Conflict("You cannot blacklist yourself")
	}

	return s.adminUpdate(ctx, caller, id, "user.blacklist",
		bson.M{"blacklisted": true, "blacklist_reason": req.Reason},
		map[string]any{"reason": req.Reason},
	)
}

func (s *userService) Unblacklist(ctx context.Context, caller *auth.Principal, id string) (*model.User, error) {
	return s.adminUpdate(ctx, caller, id, "user.unblacklist", bson.M{"blacklisted": false, "blacklist_reason": ""}, nil)
}

func (s *userService) SetRole(ctx context.Context, caller *auth.Principal, id string, change *model.RoleChange) (*model.User, error) {
	if err := s.validator.ValidateRole(change); err != nil {
		return nil, validation.ToAppError("Role validation failed", err)
	}
	if caller != nil && caller.UserID == id {
		return nil, apperrors.Conflict("You cannot change your own role")
	}

	return s.adminUpdate(ctx, caller, id, "user.role", bson.M{"role": change.Role}, map[string]any{"role": change.Role})
}

func (s *userService) ListPromotions(ctx context.Context, status model.PromotionStatus, limit int, offset int64) ([]*model.OwnerPromotionRequest, int64, error) {
	var total int64
	var requests []*model.OwnerPromotionRequest
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.promotions.Count(ctx, status)
	}()

	go func() {
		defer wg.Done()
		requests, errFind = s.promotions.Find(ctx, status, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count promotion requests", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve promotion requests", errFind)
	}

	return requests, total, nil
}

// ApprovePromotion marks the request approved and makes the requester an
// owner in one transaction.
func (s *userService) ApprovePromotion(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error) {
	return s.review(ctx, caller, id, model.PromotionApproved, review)
}

func (s *userService) RejectPromotion(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error) {
	return s.review(ctx, caller, id, model.PromotionRejected, review)
}

func (s *userService) review(ctx context.Context, caller *auth.Principal, id string, status model.PromotionStatus, review *model.PromotionReview) (*model.OwnerPromotionRequest, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	review.Note = sanitizer.SanitizeText(review.Note)
	if err := s.validator.ValidateReview(review); err != nil {
		return nil, validation.ToAppError("Review validation failed", err)
	}

	req, err := s.promotions.FindByID(ctx, id)
	if err != nil {
		return nil, s.translatePromotion(err, id)
	}
	if req.Status != model.PromotionPending {
		return nil, apperrors.Conflict("Promotion request has already been reviewed")
	}

	now := s.now()
	req.Status = status
	req.ReviewedBy = caller.UserID
	req.ReviewNote = review.Note
	req.ReviewedAt = &now

	err = s.promotions.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.promotions.Review(sessCtx, req); err != nil {
			return err
		}
		if status != model.PromotionApproved {
			return nil
		}
		_, err := s.repo.Update(sessCtx, req.UserID, bson.M{"role": model.RoleOwner})
		return err
	})
	if err != nil {
		if errors.Is(err, userserrors.ErrPromotionReviewed) {
			return nil, apperrors.Conflict("Promotion request has already been reviewed")
		}
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", req.UserID)
		}
		s.log.Error("Failed to review promotion request", "id", id, "status", status, "error", err)
		return nil, apperrors.Internal("Failed to review promotion request", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "promotion."+string(status), "promotion", id, map[string]any{
		"user_id": req.UserID,
		"note":    req.ReviewNote,
	}))
	s.log.Info("Promotion request reviewed", "id", id, "status", status, "admin_id", caller.UserID)
	return req, nil
}

func (s *userService) adminUpdate(ctx context.Context, caller *auth.Principal, id, action string, fields bson.M, details map[string]any) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.translate(err, id, "update")
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, action, "user", id, details))
	s.log.Info("User updated by admin", "id", id, "action", action, "admin_id", caller.UserID)
	return user, nil
}

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	return user, nil
}

func (s *userService) translate(err error, id, op string) error {
	switch {
	case errors.Is(err, userserrors.ErrNotFound):
		return apperrors.NotFoundWithID("User", id)
	case errors.Is(err, userserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid user ID format")
	}
	s.log.Error("User repository failure", "id", id, "operation", op, "error", err)
	return apperrors.Internal("Failed to "+op+" user", err)
}

func (s *userService) translatePromotion(err error, id string) error {
	switch {
	case errors.Is(err, userserrors.ErrPromotionNotFound):
		return apperrors.NotFoundWithID("Promotion request", id)
	case errors.Is(err, userserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid promotion request ID format")
	}
	s.log.Error("Promotion repository failure", "id", id, "error", err)
	return apperrors.Internal("Failed to retrieve promotion request", err)
}
