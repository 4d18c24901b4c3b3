package match

import "strings"

// categoryVocab maps an incident category to the vocabulary an article about
// that kind of incident is expected to use. Lookup is case-insensitive;
// unknown categories fall back to the category's own words.
var categoryVocab = map[string][]string{
	"shooting":         {"shooting", "shot", "gunfire", "opened fire", "fatally shot", "firearm"},
	"death in custody": {"died", "death", "custody", "detention", "jail", "medical care", "unresponsive"},
	"arrest":           {"arrest", "arrested", "detained", "taken into custody", "apprehended"},
	"raid":             {"raid", "raided", "warrant", "agents", "enforcement operation"},
	"detention":        {"detained", "detention", "held", "facility", "processing center"},
	"deportation":      {"deported", "deportation", "removal", "removed from the country"},
	"protest":          {"protest", "demonstration", "demonstrators", "rally", "march", "crowd"},
	"assault":          {"assault", "assaulted", "beaten", "injured", "struck", "tackled"},
	"vehicle pursuit":  {"pursuit", "chase", "crash", "collision", "fled"},
	"self-harm":        {"suicide", "self-harm", "took his own life", "took her own life"},
}

// CategoryKeywords returns the expected vocabulary for a category.
func CategoryKeywords(category string) []string {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		return nil
	}
	if kws, ok := categoryVocab[key]; ok {
		return kws
	}
	// Unlisted category: the category words themselves are the vocabulary.
	return strings.Fields(key)
}
