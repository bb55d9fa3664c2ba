package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	domainauth "github.com/target/ghsession/internal/domain/auth"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// writeAuthError maps a sign-in failure onto a status code; the error code is the failure kind.
func writeAuthError(w http.ResponseWriter, err error) {
	kind := domainauth.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case domainauth.ErrKindDenied:
		code = http.StatusForbidden
	case domainauth.ErrKindFlow, domainauth.ErrKindExchange:
		code = http.StatusBadGateway
	case domainauth.ErrKindCanceled:
		code = http.StatusRequestTimeout
	case domainauth.ErrKindStorage:
		code = http.StatusInternalServerError
	default:
		kind = "internal"
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: string(kind), Err: err})
}
