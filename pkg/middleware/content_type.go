package middleware

import (
	"net/http"
	"strings"

	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeMultipart = "multipart/form-data"
)

// ContentTypeValidation requires JSON bodies on write requests. Paths listed
// in multipartPaths accept multipart/form-data instead. Requests without a
// body pass through.
func ContentTypeValidation(log *logger.Logger, multipartPaths ...string) func(http.Handler) http.Handler {
	multipart := make(map[string]struct{}, len(multipartPaths))
	for _, p := range multipartPaths {
		multipart[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r.Method) && hasBody(r) {
				contentType := extractContentType(r.Header.Get("Content-Type"))

				expected := contentTypeJSON
				if _, ok := multipart[r.URL.Path]; ok {
					expected = contentTypeMultipart
				}

				if contentType != expected {
					rejectInvalidContentType(w, log, r, contentType, expected)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func hasBody(r *http.Request) bool {
	return r.ContentLength != 0 || r.Header.Get("Transfer-Encoding") != ""
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.Split(header, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func rejectInvalidContentType(w http.ResponseWriter, log *logger.Logger, r *http.Request, contentType, expected string) {
	log.Warn("Invalid Content-Type header",
		"request_id", logger.RequestID(r.Context()),
		"content_type", contentType,
		"path", r.URL.Path,
		"method", r.Method,
	)

	_ = httputil.WriteError(w, apperrors.New(
		apperrors.CodeBadRequest,
		"Content-Type must be "+expected,
		http.StatusUnsupportedMediaType,
	))
}
