package geo

import (
	"net"
	"strings"

	"streamgate/internal/core/ports"
)

// StaticResolver maps client IPs to country codes from a fixed CIDR table
// loaded at startup. Lookups that match nothing return "Unknown", which the
// blocklist never contains, so resolution failure always fails open.
type StaticResolver struct {
	ranges []countryRange
}

type countryRange struct {
	network *net.IPNet
	country string
}

// NewStaticResolver builds a resolver from "CIDR=CC" entries. Malformed
// entries are skipped rather than failing startup.
func NewStaticResolver(entries []string) ports.GeoResolver {
	r := &StaticResolver{}
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		_, network, err := net.ParseCIDR(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		r.ranges = append(r.ranges, countryRange{
			network: network,
			country: strings.ToUpper(strings.TrimSpace(parts[1])),
		})
	}
	return r
}

func (r *StaticResolver) Country(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "Unknown"
	}
	for _, cr := range r.ranges {
		if cr.network.Contains(parsed) {
			return cr.country
		}
	}
	return "Unknown"
}
