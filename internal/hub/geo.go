package hub

import (
	"log"
	"net"
	"net/http"

	"github.com/oschwald/geoip2-golang"
	"github.com/ua-parser/uap-go/uaparser"
)

// geoEnricher annotates the access log with a requester's country and
// parsed user-agent (SPEC_FULL.md §4.9 expansion). It never affects
// routing or response bodies.
type geoEnricher struct {
	db     *geoip2.Reader
	parser *uaparser.Parser
}

// EnableGeoIP opens a MaxMind GeoIP2 database and wires access-log
// enrichment into this server.
func (s *Server) EnableGeoIP(dbPath string) error {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	s.geo = &geoEnricher{db: db, parser: uaparser.NewFromSaved()}
	return nil
}

// enrich logs the requester's resolved country and parsed client,
// best-effort: lookup failures are logged and otherwise ignored.
func (g *geoEnricher) enrich(r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return
	}

	country := "unknown"
	if rec, err := g.db.Country(ip); err == nil {
		country = rec.Country.IsoCode
	}

	client := g.parser.Parse(r.UserAgent())
	browser := client.UserAgent.Family

	log.Printf("hub: access %s %s from %s (%s, %s)", r.Method, r.URL.Path, ip, country, browser)
}
