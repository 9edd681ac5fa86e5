package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrTrailingBody reports a request body containing more than one JSON value.
var ErrTrailingBody = errors.New("httpx: unexpected data after JSON body")

// WriteJSON writes a JSON response with the given status code. Token
// responses must never be cached, so every JSON response carries no-store.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields
// and trailing garbage.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A second decode must hit EOF, otherwise the body held more than one value.
	if dec.More() {
		return ErrTrailingBody
	}
	return nil
}
