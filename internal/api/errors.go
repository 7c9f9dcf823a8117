package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/houhousishu/houhou/internal/catalog"
	"github.com/houhousishu/houhou/internal/companion"
	"github.com/houhousishu/houhou/internal/remote"
	"github.com/houhousishu/houhou/internal/storage"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeError maps a catalog or companion error to a status code. Remote
// rejections keep their upstream status and also carry the message as
// "detail", which the site's forms display verbatim.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rej *remote.RejectedError
	switch {
	case errors.As(err, &rej):
		code := rej.Status
		if catalog.IsCredentialError(err) {
			code = http.StatusUnauthorized
		} else if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": rej.Detail,
				"type":    "rejected_error",
			},
			"detail": rej.Detail,
		})
	case errors.Is(err, catalog.ErrInvalidInput), errors.Is(err, catalog.ErrMissingID):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, storage.ErrStorageUnavailable):
		logger.Error("local storage unavailable", "error", err)
		httpError(w, http.StatusServiceUnavailable, "storage_error", "local storage unavailable")
	case errors.Is(err, companion.ErrUnavailable):
		httpError(w, http.StatusServiceUnavailable, "companion_error", "%s", companion.ErrUnavailable.Error())
	case errors.Is(err, remote.ErrUnreachable):
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	default:
		logger.Error("request failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
