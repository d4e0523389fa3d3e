package hub

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-version"
)

// versionChecker answers /api/version with this build's version and
// whether it satisfies a caller-supplied minimum (SPEC_FULL.md §4.9
// expansion) — useful for monitoring dashboards pinned to a minimum
// compatible receiver core version.
type versionChecker struct {
	current *version.Version
}

// EnableVersionEndpoint wires /api/version into this server, reporting
// buildVersion (e.g. "1.4.0").
func (s *Server) EnableVersionEndpoint(buildVersion string) error {
	v, err := version.NewVersion(buildVersion)
	if err != nil {
		return err
	}
	s.versioner = &versionChecker{current: v}
	return nil
}

func (vc *versionChecker) handle(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"version": vc.current.String()}

	if min := r.URL.Query().Get("min"); min != "" {
		minVersion, err := version.NewVersion(min)
		if err != nil {
			http.Error(w, "bad min version", http.StatusBadRequest)
			return
		}
		resp["compatible"] = !vc.current.LessThan(minVersion)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
