package header

import (
	"net/http"
	"strings"
)

// IsApplicationJSONContentType returns true if the content type of the
// request is application/json. Parameters such as charset are ignored.
func IsApplicationJSONContentType(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i > -1 {
		contentType = strings.TrimSpace(contentType[0:i])
	}
	return contentType == "application/json"
}
