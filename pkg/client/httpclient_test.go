package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponse_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"upstream down"}`, "upstream down"},
		{"nested gateway error", `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`, "BAD_REQUEST_ERROR amount too small"},
		{"string error", `{"error":"invalid key"}`, "invalid key"},
		{"code only", `{"code":"RATE_LIMITED"}`, "RATE_LIMITED"},
		{"not json", `<html>502</html>`, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{StatusCode: http.StatusBadGateway, Body: []byte(tt.body)}
			if got := r.ErrorMessage(); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostJSON_SendsHeadersAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Idempotency-Key") != "order-b1" {
			t.Errorf("missing idempotency key")
		}
		if u, p, ok := r.BasicAuth(); !ok || u != "id" || p != "secret" {
			t.Errorf("missing basic auth")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"order_1"}`))
	}))
	defer srv.Close()

	c := NewHttpClient(srv.URL + "/").WithBasicAuth("id", "secret")
	resp, err := c.PostJSON(context.Background(), "/v1/orders", map[string]int{"amount": 100}, map[string]string{"Idempotency-Key": "order-b1"})
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if !resp.IsSuccess() || resp.DecodeJSON(&out) != nil || out.ID != "order_1" {
		t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}
