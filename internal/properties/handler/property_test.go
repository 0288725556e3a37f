package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockPropertyService struct {
	CreateFunc   func(ctx context.Context, caller *auth.Principal, input *model.PropertyCreate) (*model.Property, error)
	SearchFunc   func(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, int64, error)
	GetFunc      func(ctx context.Context, caller *auth.Principal, id string) (*model.Property, error)
	ModerateFunc func(ctx context.Context, caller *auth.Principal, id string, decision *model.ModerationDecision) (*model.Property, error)
}

func (m *mockPropertyService) Create(ctx context.Context, caller *auth.Principal, input *model.PropertyCreate) (*model.Property, error) {
	return m.CreateFunc(ctx, caller, input)
}

func (m *mockPropertyService) Update(context.Context, *auth.Principal, string, *model.PropertyUpdate) (*model.Property, error) {
	return nil, nil
}

func (m *mockPropertyService) Archive(context.Context, *auth.Principal, string) error { return nil }

func (m *mockPropertyService) Get(ctx context.Context, caller *auth.Principal, id string) (*model.Property, error) {
	return m.GetFunc(ctx, caller, id)
}

func (m *mockPropertyService) Availability(context.Context, *auth.Principal, string) (*model.Availability, error) {
	return &model.Availability{}, nil
}

func (m *mockPropertyService) Search(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, int64, error) {
	return m.SearchFunc(ctx, query, limit, offset)
}

func (m *mockPropertyService) ListMine(context.Context, *auth.Principal, int, int64) ([]*model.Property, int64, error) {
	return nil, 0, nil
}

func (m *mockPropertyService) ListAll(context.Context, model.PropertyStatus, int, int64) ([]*model.Property, int64, error) {
	return []*model.Property{}, 0, nil
}

func (m *mockPropertyService) Moderate(ctx context.Context, caller *auth.Principal, id string, decision *model.ModerationDecision) (*model.Property, error) {
	return m.ModerateFunc(ctx, caller, id, decision)
}

func serve(svc *mockPropertyService, req *http.Request) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewPropertyHandler(svc, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSearch_ParsesQuery(t *testing.T) {
	var got model.PropertySearch
	var gotLimit int
	svc := &mockPropertyService{
		SearchFunc: func(_ context.Context, q model.PropertySearch, limit int, _ int64) ([]*model.Property, int64, error) {
			got, gotLimit = q, limit
			return []*model.Property{}, 0, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/properties?city=Leeds&min_price=100&max_price=600&room_type=single&available=true&limit=500", nil)
	rec := serve(svc, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got.City != "Leeds" || *got.MinPrice != 100 || *got.MaxPrice != 600 || got.RoomType != model.RoomSingle || !got.AvailableOnly {
		t.Errorf("search = %+v", got)
	}
	if gotLimit != 100 {
		t.Errorf("limit should be capped at 100, got %d", gotLimit)
	}
}

func TestSearch_BadPrice(t *testing.T) {
	rec := serve(&mockPropertyService{}, httptest.NewRequest(http.MethodGet, "/api/properties?min_price=cheap", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreate_PassesPrincipal(t *testing.T) {
	caller := &auth.Principal{UserID: "o1", Role: model.RoleOwner}
	svc := &mockPropertyService{
		CreateFunc: func(_ context.Context, p *auth.Principal, input *model.PropertyCreate) (*model.Property, error) {
			if p != caller {
				t.Errorf("principal not forwarded")
			}
			return &model.Property{ID: "p1", Title: input.Title}, nil
		},
	}

	body, _ := json.Marshal(map[string]any{"title": "Rooms"})
	req := httptest.NewRequest(http.MethodPost, "/api/properties", bytes.NewReader(body))
	req = req.WithContext(auth.WithPrincipal(req.Context(), caller))
	rec := serve(svc, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/properties", bytes.NewReader([]byte(`{"title":"x","owner_id":"me"}`)))
	rec := serve(&mockPropertyService{}, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := &mockPropertyService{
		GetFunc: func(context.Context, *auth.Principal, string) (*model.Property, error) {
			return nil, apperrors.NotFoundWithID("Property", "x")
		},
	}
	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/properties/x", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListAll_RejectsUnknownStatus(t *testing.T) {
	rec := serve(&mockPropertyService{}, httptest.NewRequest(http.MethodGet, "/api/admin/properties?status=deleted", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
