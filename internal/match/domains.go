package match

import (
	"net/url"
	"strings"
)

// domainDisplayNames maps source hostnames to outlet display names, used when
// a citation carries no name of its own. Data-driven so the table can be
// tested and extended without touching fetch or scoring logic.
var domainDisplayNames = map[string]string{
	"apnews.com":            "Associated Press",
	"reuters.com":           "Reuters",
	"nytimes.com":           "The New York Times",
	"washingtonpost.com":    "The Washington Post",
	"latimes.com":           "Los Angeles Times",
	"chicagotribune.com":    "Chicago Tribune",
	"theguardian.com":       "The Guardian",
	"nbcnews.com":           "NBC News",
	"cbsnews.com":           "CBS News",
	"abcnews.go.com":        "ABC News",
	"cnn.com":               "CNN",
	"foxnews.com":           "Fox News",
	"npr.org":               "NPR",
	"propublica.org":        "ProPublica",
	"texastribune.org":      "The Texas Tribune",
	"azcentral.com":         "The Arizona Republic",
	"miamiherald.com":       "Miami Herald",
	"startribune.com":       "Star Tribune",
	"documentedny.com":      "Documented",
	"theintercept.com":      "The Intercept",
	"ice.gov":               "ICE Newsroom",
	"dhs.gov":               "DHS Press Office",
	"justice.gov":           "DOJ Press Office",
	"aclu.org":              "ACLU",
	"humanrightsfirst.org":  "Human Rights First",
	"americanimmigrationcouncil.org": "American Immigration Council",
}

// SourceDisplayName resolves a human-readable outlet name for a URL, falling
// back to the bare hostname.
func SourceDisplayName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if name, ok := domainDisplayNames[host]; ok {
		return name
	}
	return host
}
