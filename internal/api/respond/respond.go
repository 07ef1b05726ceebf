// Package respond writes JSON bodies and coded errors for the HTTP layer.
package respond

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
)

type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Error answers with the status of the error code. Errors without a code are
// logged and hidden behind internal_error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code != apperrors.CodeInternal {
		JSON(w, appErr.Code.HTTPStatus(), ErrorBody{
			Error:   string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Metadata,
		})
		return
	}
	log.Printf("http: unexpected error method=%s path=%s request_id=%s err=%v",
		r.Method, r.URL.Path, chimw.GetReqID(r.Context()), err)
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "internal error"})
}
