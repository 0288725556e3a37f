package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unistay/internal/users/service"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockUserService struct {
	service.UserService
	MeFunc            func(ctx context.Context, caller *auth.Principal) (*model.User, error)
	UpdateProfileFunc func(ctx context.Context, caller *auth.Principal, update *model.ProfileUpdate) (*model.User, error)
	ListUsersFunc     func(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error)
	SetRoleFunc       func(ctx context.Context, caller *auth.Principal, id string, change *model.RoleChange) (*model.User, error)
	ApproveFunc       func(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error)
}

func (m *mockUserService) Me(ctx context.Context, caller *auth.Principal) (*model.User, error) {
	return m.MeFunc(ctx, caller)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, caller *auth.Principal, update *model.ProfileUpdate) (*model.User, error) {
	return m.UpdateProfileFunc(ctx, caller, update)
}

func (m *mockUserService) ListUsers(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error) {
	return m.ListUsersFunc(ctx, filter, limit, offset)
}

func (m *mockUserService) SetRole(ctx context.Context, caller *auth.Principal, id string, change *model.RoleChange) (*model.User, error) {
	return m.SetRoleFunc(ctx, caller, id, change)
}

func (m *mockUserService) ApprovePromotion(ctx context.Context, caller *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error) {
	return m.ApproveFunc(ctx, caller, id, review)
}

type mockTwoFactorService struct {
	service.TwoFactorService
	VerifyFunc func(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error
}

func (m *mockTwoFactorService) Verify(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error {
	return m.VerifyFunc(ctx, caller, code)
}

type mockAvatarService struct {
	UploadFunc func(ctx context.Context, caller *auth.Principal, r io.Reader) (*model.User, error)
}

func (m *mockAvatarService) Upload(ctx context.Context, caller *auth.Principal, r io.Reader) (*model.User, error) {
	return m.UploadFunc(ctx, caller, r)
}

func serve(users service.UserService, twoFactor service.TwoFactorService, avatars service.AvatarService, req *http.Request) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewUserHandler(users, twoFactor, avatars, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func asUser(req *http.Request, p *auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

var student = &auth.Principal{UserID: "student-1", Role: model.RoleStudent}

func TestMe(t *testing.T) {
	users := &mockUserService{
		MeFunc: func(_ context.Context, caller *auth.Principal) (*model.User, error) {
			if caller != student {
				t.Errorf("principal not forwarded")
			}
			return &model.User{ID: "student-1", Email: "s@uni.ac.uk", TwoFactor: model.TwoFactor{Secret: "sealed"}}, nil
		},
	}

	rec := serve(users, nil, nil, asUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), student))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "sealed") {
		t.Error("two-factor secret leaked into the response")
	}
}

func TestUpdateProfile_DecodesPatch(t *testing.T) {
	var got *model.ProfileUpdate
	users := &mockUserService{
		UpdateProfileFunc: func(_ context.Context, _ *auth.Principal, update *model.ProfileUpdate) (*model.User, error) {
			got = update
			return &model.User{ID: "student-1"}, nil
		},
	}

	body := `{"phone":"+44 20 7946 0958"}`
	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(body)), student)
	rec := serve(users, nil, nil, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got.Name != nil || got.Phone == nil || *got.Phone != "+44 20 7946 0958" {
		t.Errorf("update = %+v", got)
	}
}

func TestUpdateProfile_RejectsRoleField(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"role":"admin"}`)), student)
	rec := serve(&mockUserService{}, nil, nil, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadAvatar(t *testing.T) {
	var uploaded []byte
	avatars := &mockAvatarService{
		UploadFunc: func(_ context.Context, _ *auth.Principal, r io.Reader) (*model.User, error) {
			uploaded, _ = io.ReadAll(r)
			return &model.User{ID: "student-1", AvatarURL: "https://cdn/x.png"}, nil
		},
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile(AvatarField, "me.png")
	_, _ = part.Write([]byte("image-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(&mockUserService{}, nil, avatars, asUser(req, student))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if string(uploaded) != "image-bytes" {
		t.Errorf("uploaded = %q", uploaded)
	}
}

func TestUploadAvatar_MissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(&mockUserService{}, nil, &mockAvatarService{}, asUser(req, student))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyTwoFactor_InvalidCode(t *testing.T) {
	twoFactor := &mockTwoFactorService{
		VerifyFunc: func(context.Context, *auth.Principal, *model.TwoFactorCode) error {
			return apperrors.Unauthorized("Invalid two-factor code")
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/me/2fa/verify", strings.NewReader(`{"code":"123456"}`)), student)
	rec := serve(&mockUserService{}, twoFactor, nil, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestListUsers_ParsesFilter(t *testing.T) {
	var got model.UserFilter
	users := &mockUserService{
		ListUsersFunc: func(_ context.Context, filter model.UserFilter, _ int, _ int64) ([]*model.User, int64, error) {
			got = filter
			return []*model.User{}, 0, nil
		},
	}

	rec := serve(users, nil, nil, httptest.NewRequest(http.MethodGet, "/api/admin/users?role=owner&blacklisted=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got.Role != model.RoleOwner || got.Blacklisted == nil || !*got.Blacklisted || got.Verified != nil {
		t.Errorf("filter = %+v", got)
	}

	rec = serve(users, nil, nil, httptest.NewRequest(http.MethodGet, "/api/admin/users?verified=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSetRole(t *testing.T) {
	admin := &auth.Principal{UserID: "admin-1", Role: model.RoleAdmin}
	users := &mockUserService{
		SetRoleFunc: func(_ context.Context, _ *auth.Principal, id string, change *model.RoleChange) (*model.User, error) {
			return &model.User{ID: id, Role: change.Role}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/admin/users/u1/role", strings.NewReader(`{"role":"owner"}`)), admin)
	rec := serve(users, nil, nil, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Data model.User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != "u1" || resp.Data.Role != model.RoleOwner {
		t.Errorf("user = %+v", resp.Data)
	}
}

func TestApprovePromotion_EmptyBody(t *testing.T) {
	users := &mockUserService{
		ApproveFunc: func(_ context.Context, _ *auth.Principal, id string, review *model.PromotionReview) (*model.OwnerPromotionRequest, error) {
			if review.Note != "" {
				t.Errorf("note = %q, want empty", review.Note)
			}
			return &model.OwnerPromotionRequest{ID: id, Status: model.PromotionApproved}, nil
		},
	}

	rec := serve(users, nil, nil, httptest.NewRequest(http.MethodPost, "/api/admin/promotions/p1/approve", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}
