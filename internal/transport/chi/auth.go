package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const authRealm = `Bearer realm="peerdex"`

// Probes and scrapes stay open when API keys are configured.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware guards the similarity API with static API keys.
// With no non-empty keys it is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			switch {
			case scheme == "":
				w.Header().Set("WWW-Authenticate", authRealm)
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized,
					"api key required: send Authorization: Bearer <key>")
				return
			case !found || !strings.EqualFold(scheme, "Bearer") || token == "":
				w.Header().Set("WWW-Authenticate", authRealm+`, error="invalid_request"`)
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized,
					"unsupported authorization scheme, expected Bearer")
				return
			}

			if !knownKey(digests, token) {
				w.Header().Set("WWW-Authenticate", authRealm+`, error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, "unknown api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// knownKey compares digests in constant time and checks every key.
func knownKey(digests [][sha256.Size]byte, token string) bool {
	d := sha256.Sum256([]byte(token))
	match := 0
	for i := range digests {
		match |= subtle.ConstantTimeCompare(d[:], digests[i][:])
	}
	return match == 1
}
