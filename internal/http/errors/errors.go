package errors

import (
	"encoding/json"
	"net/http"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError serializa err como JSON. Los 5xx se loguean con la causa.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	writeJSON(w, appErr)
}

// WriteErrorCtx es WriteError con el logger del request.
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed",
			logger.String("code", appErr.Code),
			logger.Status(appErr.HTTPStatus),
			logger.Err(appErr.Err),
		)
	}
	writeJSON(w, appErr)
}

func writeJSON(w http.ResponseWriter, appErr *AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
