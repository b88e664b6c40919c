package inverter

import (
	"regexp"

	"github.com/solarflux/solarflux/internal/reading"
)

// The status page embeds its data as JavaScript assignments of the form
//
//	var webdata_now_p = "350.5";
//
// grouped into three sections: webdata_* (measurements), cover_* (WiFi
// bridge), status_* (vendor cloud connectivity).
var statVarPattern = regexp.MustCompile(`var\s+(\w+)\s*=\s*"([^"]*)";`)

var pageSections = []string{"webdata", "cover", "status"}

// Parse decodes the raw status page into RawStats. Variables outside the
// known sections are kept; firmware variants add fields and the page must
// stay decodable across them. Individually malformed lines are skipped.
func Parse(payload []byte) (reading.RawStats, error) {
	matches := statVarPattern.FindAllSubmatch(payload, -1)
	if len(matches) == 0 {
		return nil, &ParseError{Kind: ParseUnexpectedFormat}
	}

	stats := make(reading.RawStats, len(matches))
	for _, m := range matches {
		stats[string(m[1])] = string(m[2])
	}

	for _, section := range pageSections {
		if !hasSection(stats, section) {
			return nil, &ParseError{Kind: ParseMissingSection, Section: section}
		}
	}
	return stats, nil
}

func hasSection(stats reading.RawStats, section string) bool {
	prefix := section + "_"
	for k := range stats {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
