package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	userserrors "unistay/internal/users/errors"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"
	"unistay/pkg/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) put(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *fakeUserRepo) get(id string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.users[id]
	return &cp
}

func (r *fakeUserRepo) UpsertOnSignIn(_ context.Context, email, name string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	r.nextID++
	u := &model.User{ID: fmt.Sprintf("%024x", r.nextID), Email: email, Name: name, Role: model.RoleStudent}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Find(_ context.Context, f model.UserFilter, _ int, _ int64) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.User{}
	for _, u := range r.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, f model.UserFilter) (int64, error) {
	users, _ := r.Find(ctx, f, 0, 0)
	return int64(len(users)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, id string, fields bson.M) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "role":
			u.Role = v.(model.Role)
		case "verified":
			u.Verified = v.(bool)
		case "blacklisted":
			u.Blacklisted = v.(bool)
		case "blacklist_reason":
			u.BlacklistReason = v.(string)
		case "avatar_url":
			u.AvatarURL = v.(string)
		case "two_factor":
			u.TwoFactor = v.(model.TwoFactor)
		case "two_factor.pending_secret":
			u.TwoFactor.PendingSecret = v.(string)
		case "two_factor.backup_code_hashes":
			u.TwoFactor.BackupCodeHashes = v.([]string)
		default:
			panic("fakeUserRepo: unhandled field " + k)
		}
	}
	cp := *u
	return &cp, nil
}

type fakePromotionRepo struct {
	mu       sync.Mutex
	requests map[string]*model.OwnerPromotionRequest
	nextID   int
}

func newFakePromotionRepo() *fakePromotionRepo {
	return &fakePromotionRepo{requests: map[string]*model.OwnerPromotionRequest{}}
}

func (r *fakePromotionRepo) Create(_ context.Context, req *model.OwnerPromotionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.UserID == req.UserID && existing.Status == model.PromotionPending {
			return userserrors.ErrPendingPromotion
		}
	}
	r.nextID++
	req.ID = fmt.Sprintf("%024x", r.nextID)
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakePromotionRepo) FindByID(_ context.Context, id string) (*model.OwnerPromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, userserrors.ErrPromotionNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakePromotionRepo) FindLatestByUser(_ context.Context, userID string) (*model.OwnerPromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.OwnerPromotionRequest
	for _, req := range r.requests {
		if req.UserID == userID && (latest == nil || req.ID > latest.ID) {
			latest = req
		}
	}
	if latest == nil {
		return nil, userserrors.ErrPromotionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakePromotionRepo) Find(_ context.Context, status model.PromotionStatus, _ int, _ int64) ([]*model.OwnerPromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.OwnerPromotionRequest{}
	for _, req := range r.requests {
		if status == "" || req.Status == status {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePromotionRepo) Count(ctx context.Context, status model.PromotionStatus) (int64, error) {
	reqs, _ := r.Find(ctx, status, 0, 0)
	return int64(len(reqs)), nil
}

func (r *fakePromotionRepo) Review(_ context.Context, req *model.OwnerPromotionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.Status != model.PromotionPending {
		return userserrors.ErrPromotionReviewed
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakePromotionRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, e model.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type stubUploader struct {
	err      error
	uploaded []byte
	publicID string
}

func (u *stubUploader) Upload(_ context.Context, r io.Reader, folder, publicID string) (*storage.Object, error) {
	if u.err != nil {
		return nil, u.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	u.uploaded = buf.Bytes()
	u.publicID = publicID
	return &storage.Object{
		URL:      "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".png",
		PublicID: folder + "/" + publicID,
	}, nil
}
