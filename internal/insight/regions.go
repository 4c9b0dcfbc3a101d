package insight

// regionByCountry is a coarse country to world-region mapping.
var regionByCountry = map[string]string{
	"China":          "East Asia",
	"Japan":          "East Asia",
	"South Korea":    "East Asia",
	"Taiwan":         "East Asia",
	"United States":  "North America",
	"Canada":         "North America",
	"Mexico":         "North America",
	"Germany":        "Europe",
	"France":         "Europe",
	"United Kingdom": "Europe",
	"Italy":          "Europe",
	"Spain":          "Europe",
	"Netherlands":    "Europe",
	"Belgium":        "Europe",
	"India":          "South Asia",
	"Vietnam":        "Southeast Asia",
	"Thailand":       "Southeast Asia",
	"Malaysia":       "Southeast Asia",
	"Indonesia":      "Southeast Asia",
	"Philippines":    "Southeast Asia",
	"Singapore":      "Southeast Asia",
	"Brazil":         "South America",
	"Argentina":      "South America",
	"Chile":          "South America",
	"Australia":      "Oceania",
	"New Zealand":    "Oceania",
}

// RegionOther is the region of countries missing from the mapping.
const RegionOther = "Other"

// RegionFor returns the world region of a country.
func RegionFor(country string) string {
	if r, ok := regionByCountry[country]; ok {
		return r
	}
	return RegionOther
}

// exportRestricted lists countries whose export policy is worth watching.
var exportRestricted = []string{"United States", "China", "Japan"}
