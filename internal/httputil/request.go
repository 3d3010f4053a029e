package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes caps request bodies at 10MB; metadata blobs stay far below
// this in practice.
const maxBodyBytes = 10 << 20

// ParseJSON decodes the request body into dest. The body is size-limited
// through the ResponseWriter so oversized requests get a proper 413.
// Unknown fields are tolerated: clients may send metadata keys this server
// version does not know about, and the domain validators decide what counts.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
