package executorsvc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aqueducts-go/aqueducts/internal/protocol"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects the handshake outright when the caller's
// X-API-Key header doesn't match the executor's configured key,
// responding with the same Rejected shape a client would otherwise
// receive over an established session, so the one rejection format
// covers both failure points. The key itself is never echoed back or
// logged: scrub redacts it before any error reaches a log line.
func requireAPIKey(apiKey string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(apiKeyHeader)
		if provided == "" || provided != apiKey {
			logger.Warn("rejected unauthenticated connection attempt", "api_key", scrub(provided), "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(protocol.Rejected{
				Reason:  protocol.RejectUnauthenticated,
				Message: "missing or invalid " + apiKeyHeader + " header",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// scrub replaces an API key with a fixed placeholder wherever it might
// otherwise be interpolated into a log line or error message.
func scrub(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	return "****"
}
