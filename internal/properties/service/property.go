package service

import (
	"context"
	"errors"
	"sync"

	auditservice "unistay/internal/audit/service"
	propertieserrors "unistay/internal/properties/errors"
	"unistay/internal/properties/repository"
	"unistay/internal/properties/validator"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"
)

type PropertyService interface {
	Create(ctx context.Context, caller *auth.Principal, input *model.PropertyCreate) (*model.Property, error)
	Update(ctx context.Context, caller *auth.Principal, id string, patch *model.PropertyUpdate) (*model.Property, error)
	Archive(ctx context.Context, caller *auth.Principal, id string) error
	Get(ctx context.Context, caller *auth.Principal, id string) (*model.Property, error)
	Availability(ctx context.Context, caller *auth.Principal, id string) (*model.Availability, error)
	Search(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, int64, error)
	ListMine(ctx context.Context, caller *auth.Principal, limit int, offset int64) ([]*model.Property, int64, error)
	ListAll(ctx context.Context, status model.PropertyStatus, limit int, offset int64) ([]*model.Property, int64, error)
	Moderate(ctx context.Context, caller *auth.Principal, id string, decision *model.ModerationDecision) (*model.Property, error)
}

type propertyService struct {
	repo      repository.PropertyRepository
	validator *validator.PropertyValidator
	audit     auditservice.Recorder
	log       *logger.Logger
}

func NewPropertyService(
	repo repository.PropertyRepository,
	validator *validator.PropertyValidator,
	audit auditservice.Recorder,
	log *logger.Logger,
) PropertyService {
	return &propertyService{
		repo:      repo,
		validator: validator,
		audit:     audit,
		log:       log,
	}
}

func (s *propertyService) Create(ctx context.Context, caller *auth.Principal, input *model.PropertyCreate) (*model.Property, error) {
	if !canList(caller) {
		return nil, apperrors.Forbidden("Only owners can create listings")
	}

	sanitizeCreate(input)
	if err := s.validator.Validate(input); err != nil {
		s.log.Warn("Property validation failed", "owner_id", caller.UserID, "error", err)
		return nil, validation.ToAppError("Property validation failed", err)
	}

	property := &model.Property{
		OwnerID:       caller.UserID,
		Title:         input.Title,
		Description:   input.Description,
		Address:       input.Address,
		University:    input.University,
		PricePerMonth: input.PricePerMonth,
		Deposit:       input.Deposit,
		Amenities:     input.Amenities,
		Images:        input.Images,
		RoomTypes:     input.RoomTypes,
		TotalRooms:    input.RoomTypes.Total(),
		Status:        model.PropertyPending,
	}

	if err := s.repo.Create(ctx, property); err != nil {
		s.log.Error("Failed to create property", "owner_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to create property", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "property.create", "property", property.ID, nil))
	s.log.Info("Property created", "id", property.ID, "owner_id", property.OwnerID, "total_rooms", property.TotalRooms)
	return property, nil
}

func (s *propertyService) Update(ctx context.Context, caller *auth.Principal, id string, patch *model.PropertyUpdate) (*model.Property, error) {
	property, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrAdmin(caller, property) {
		return nil, apperrors.Forbidden("You can only edit your own listings")
	}
	if property.Status == model.PropertyArchived {
		return nil, apperrors.Conflict("Archived listings cannot be edited")
	}

	sanitizeUpdate(patch)
	if err := s.validator.ValidateUpdate(patch); err != nil {
		return nil, validation.ToAppError("Property validation failed", err)
	}

	if applyUpdate(property, patch) && !caller.IsAdmin() {
		property.Status = model.PropertyPending
	}

	if err := s.repo.Update(ctx, property); err != nil {
		switch {
		case errors.Is(err, propertieserrors.ErrBelowOccupancy):
			return nil, apperrors.Conflict("Total rooms cannot be reduced below current occupancy")
		case errors.Is(err, propertieserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Property", id)
		}
		s.log.Error("Failed to update property", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update property", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "property.update", "property", id, map[string]any{"status": property.Status}))
	s.log.Info("Property updated", "id", id, "status", property.Status)
	return property, nil
}

func (s *propertyService) Archive(ctx context.Context, caller *auth.Principal, id string) error {
	property, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !ownsOrAdmin(caller, property) {
		return apperrors.Forbidden("You can only archive your own listings")
	}
	if property.LiveStats.OccupiedRooms > 0 {
		return apperrors.Conflict("Listing has active bookings")
	}

	if err := s.repo.SetStatus(ctx, id, model.PropertyArchived, property.ModerationNote); err != nil {
		return s.translate(err, id, "archive")
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "property.archive", "property", id, nil))
	s.log.Info("Property archived", "id", id)
	return nil
}

// Get returns a listing. Unapproved listings are only visible to their
// owner and admins; public reads count as a view.
func (s *propertyService) Get(ctx context.Context, caller *auth.Principal, id string) (*model.Property, error) {
	property, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if caller == nil || caller.UserID != property.OwnerID {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			s.log.Warn("Failed to increment property views", "id", id, "error", err)
		} else {
			property.LiveStats.Views++
		}
	}

	return property, nil
}

func (s *propertyService) Availability(ctx context.Context, caller *auth.Principal, id string) (*model.Availability, error) {
	property, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	return &model.Availability{
		PropertyID:     property.ID,
		TotalRooms:     property.TotalRooms,
		OccupiedRooms:  property.LiveStats.OccupiedRooms,
		AvailableRooms: property.AvailableRooms(),
	}, nil
}

func (s *propertyService) Search(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, int64, error) {
	query.City = sanitizer.NormalizeCity(query.City)
	query.University = sanitizer.SanitizeLine(query.University)
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price cannot exceed max_price")
	}
	if query.RoomType != "" && !query.RoomType.Valid() {
		return nil, 0, apperrors.InvalidInput("room_type must be one of: single double shared")
	}

	return s.list(ctx, "search",
		func() (int64, error) { return s.repo.CountSearch(ctx, query) },
		func() ([]*model.Property, error) { return s.repo.Search(ctx, query, limit, offset) },
	)
}

func (s *propertyService) ListMine(ctx context.Context, caller *auth.Principal, limit int, offset int64) ([]*model.Property, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("Sign in required")
	}
	return s.list(ctx, "owner listings",
		func() (int64, error) { return s.repo.CountByOwner(ctx, caller.UserID) },
		func() ([]*model.Property, error) { return s.repo.FindByOwner(ctx, caller.UserID, limit, offset) },
	)
}

func (s *propertyService) ListAll(ctx context.Context, status model.PropertyStatus, limit int, offset int64) ([]*model.Property, int64, error) {
	return s.list(ctx, "all listings",
		func() (int64, error) { return s.repo.Count(ctx, status) },
		func() ([]*model.Property, error) { return s.repo.FindAll(ctx, status, limit, offset) },
	)
}

func (s *propertyService) Moderate(ctx context.Context, caller *auth.Principal, id string, decision *model.ModerationDecision) (*model.Property, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	decision.Note = sanitizer.SanitizeText(decision.Note)
	if err := s.validator.ValidateModeration(decision); err != nil {
		return nil, validation.ToAppError("Moderation validation failed", err)
	}

	property, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if property.Status == model.PropertyArchived {
		return nil, apperrors.Conflict("Archived listings cannot be moderated")
	}

	status := model.PropertyStatus(decision.Status)
	if err := s.repo.SetStatus(ctx, id, status, decision.Note); err != nil {
		return nil, s.translate(err, id, "moderate")
	}
	property.Status = status
	property.ModerationNote = decision.Note

	s.audit.Record(ctx, auditservice.Entry(ctx, "property.moderate", "property", id, map[string]any{
		"status": status,
		"note":   decision.Note,
	}))
	s.log.Info("Property moderated", "id", id, "status", status, "admin_id", caller.UserID)
	return property, nil
}

func (s *propertyService) find(ctx context.Context, id string) (*model.Property, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}

	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	return property, nil
}

func (s *propertyService) visible(ctx context.Context, caller *auth.Principal, id string) (*model.Property, error) {
	property, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if property.Status != model.PropertyApproved && !ownsOrAdmin(caller, property) {
		return nil, apperrors.NotFoundWithID("Property", id)
	}
	return property, nil
}

func (s *propertyService) list(
	ctx context.Context,
	what string,
	count func() (int64, error),
	find func() ([]*model.Property, error),
) ([]*model.Property, int64, error) {
	var total int64
	var properties []*model.Property
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count()
	}()

	go func() {
		defer wg.Done()
		properties, errFind = find()
	}()

	wg.Wait()
	if errCount != nil {
		s.log.WithContext(ctx).Error("Failed to count properties", "query", what, "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count properties", errCount)
	}
	if errFind != nil {
		s.log.WithContext(ctx).Error("Failed to list properties", "query", what, "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve properties", errFind)
	}

	return properties, total, nil
}

func (s *propertyService) translate(err error, id, op string) error {
	switch {
	case errors.Is(err, propertieserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Property", id)
	case errors.Is(err, propertieserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid property ID format")
	}
	s.log.Error("Property repository failure", "id", id, "operation", op, "error", err)
	return apperrors.Internal("Failed to "+op+" property", err)
}

func canList(caller *auth.Principal) bool {
	return caller != nil && (caller.Is(model.RoleOwner) || caller.IsAdmin())
}

func ownsOrAdmin(caller *auth.Principal, property *model.Property) bool {
	return caller != nil && (caller.UserID == property.OwnerID || caller.IsAdmin())
}

func sanitizeCreate(p *model.PropertyCreate) {
	p.Title = sanitizer.SanitizeLine(p.Title)
	p.Description = sanitizer.SanitizeText(p.Description)
	p.University = sanitizer.SanitizeLine(p.University)
	p.Address.Line1 = sanitizer.SanitizeLine(p.Address.Line1)
	p.Address.City = sanitizer.NormalizeCity(p.Address.City)
	p.Address.Postcode = sanitizer.SanitizeLine(p.Address.Postcode)
	p.Amenities = sanitizer.NormalizeAmenities(p.Amenities)
	p.Images = sanitizer.NormalizeImageURLs(p.Images)
}

func sanitizeUpdate(p *model.PropertyUpdate) {
	if p.Title != nil {
		*p.Title = sanitizer.SanitizeLine(*p.Title)
	}
	if p.Description != nil {
		*p.Description = sanitizer.SanitizeText(*p.Description)
	}
	if p.University != nil {
		*p.University = sanitizer.SanitizeLine(*p.University)
	}
	if p.Address != nil {
		p.Address.Line1 = sanitizer.SanitizeLine(p.Address.Line1)
		p.Address.City = sanitizer.NormalizeCity(p.Address.City)
		p.Address.Postcode = sanitizer.SanitizeLine(p.Address.Postcode)
	}
	if p.Amenities != nil {
		*p.Amenities = sanitizer.NormalizeAmenities(*p.Amenities)
	}
	if p.Images != nil {
		*p.Images = sanitizer.NormalizeImageURLs(*p.Images)
	}
}

// applyUpdate merges patch into p and reports whether a moderated field
// (listing text, address or price) changed.
func applyUpdate(p *model.Property, patch *model.PropertyUpdate) bool {
	moderated := false

	if patch.Title != nil && *patch.Title != p.Title {
		p.Title = *patch.Title
		moderated = true
	}
	if patch.Description != nil && *patch.Description != p.Description {
		p.Description = *patch.Description
		moderated = true
	}
	if patch.Address != nil && *patch.Address != p.Address {
		p.Address = *patch.Address
		moderated = true
	}
	if patch.PricePerMonth != nil && *patch.PricePerMonth != p.PricePerMonth {
		p.PricePerMonth = *patch.PricePerMonth
		moderated = true
	}
	if patch.Deposit != nil && *patch.Deposit != p.Deposit {
		p.Deposit = *patch.Deposit
		moderated = true
	}
	if patch.University != nil {
		p.University = *patch.University
	}
	if patch.Amenities != nil {
		p.Amenities = *patch.Amenities
	}
	if patch.Images != nil {
		p.Images = *patch.Images
	}
	if patch.RoomTypes != nil {
		p.RoomTypes = *patch.RoomTypes
		p.TotalRooms = patch.RoomTypes.Total()
	}

	return moderated
}
