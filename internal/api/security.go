package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// RequireAPIKey authenticates a request by computing the HMAC-SHA256 of
// the provided API key, looking it up in the repository, and performing
// a constant-time comparison to prevent timing attacks.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized", "missing api key")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded: the stored hash could differ
		// from what we computed if the repository returns a stale row.
		storedBytes, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
			respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
