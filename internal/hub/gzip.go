package hub

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// EnableGzip turns on gzip compression of JSON responses for clients
// that advertise Accept-Encoding: gzip (SPEC_FULL.md §4.9 expansion).
// SSE streams are never compressed, since they must flush incrementally.
func (s *Server) EnableGzip() { s.gzip = true }

// writeJSONCompressed is writeJSON's gzip-aware counterpart, used by
// the /ctlfreq, /encrypted and /health handlers; /api/version writes
// its JSON uncompressed.
func (s *Server) writeJSONCompressed(w http.ResponseWriter, r *http.Request, v any) {
	if !s.gzip || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		writeJSON(w, v)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Vary", "Accept-Encoding")
	gz := gzip.NewWriter(w)
	defer gz.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Transfer-Encoding", "chunked")
	_ = writeJSONTo(gz, v)
}
