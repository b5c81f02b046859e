// Package auth extracts caller credentials from API requests. The API
// trusts Instagram access tokens issued by the OAuth flow; handlers pass
// the extracted token straight to the Graph API, which is the actual
// authority on validity.
package auth

import (
	"net/http"
	"strings"

	"github.com/fpang/ig-link-hub/internal/errutil"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the access token from the Authorization header.
// Returns KindUnauthorized when the header is absent or malformed.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errutil.New(errutil.KindUnauthorized, "Missing Authorization header")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errutil.New(errutil.KindUnauthorized, "Authorization header must use the Bearer scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errutil.New(errutil.KindUnauthorized, "Empty bearer token")
	}
	return token, nil
}
