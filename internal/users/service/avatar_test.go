package service

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"unistay/pkg/auth"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newAvatar(uploader storage.Uploader, maxBytes int) (AvatarService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	repo.put(&model.User{ID: "student-1", Email: "s@uni.ac.uk", Role: model.RoleStudent})
	return NewAvatarService(repo, uploader, "unistay/avatars", maxBytes, &recordingAudit{}, logger.Discard()), repo
}

func TestAvatarUpload(t *testing.T) {
	uploader := &stubUploader{}
	svc, repo := newAvatar(uploader, 1024)
	caller := &auth.Principal{UserID: "student-1", Role: model.RoleStudent}

	user, err := svc.Upload(context.Background(), caller, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploader.publicID != "student-1" {
		t.Errorf("public id = %s, want user id", uploader.publicID)
	}
	if !bytes.Equal(uploader.uploaded, pngHeader) {
		t.Error("uploaded bytes differ from input")
	}
	if user.AvatarURL == "" || repo.get("student-1").AvatarURL != user.AvatarURL {
		t.Errorf("avatar url not saved: %q", user.AvatarURL)
	}
}

func TestAvatarUpload_Rejections(t *testing.T) {
	caller := &auth.Principal{UserID: "student-1", Role: model.RoleStudent}

	tests := []struct {
		name     string
		uploader storage.Uploader
		body     []byte
		caller   *auth.Principal
		want     int
	}{
		{name: "anonymous", uploader: &stubUploader{}, body: pngHeader, want: http.StatusUnauthorized},
		{name: "empty", uploader: &stubUploader{}, body: nil, caller: caller, want: http.StatusBadRequest},
		{name: "not an image", uploader: &stubUploader{}, body: []byte("hello, world"), caller: caller, want: http.StatusBadRequest},
		{name: "too large", uploader: &stubUploader{}, body: append(append([]byte{}, pngHeader...), make([]byte, 64)...), caller: caller, want: http.StatusBadRequest},
		{name: "storage not configured", uploader: storage.Unconfigured{}, body: pngHeader, caller: caller, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAvatar(tt.uploader, 32)
			_, err := svc.Upload(context.Background(), tt.caller, bytes.NewReader(tt.body))
			wantStatus(t, err, tt.want)
		})
	}
}
