// Package domain models the nearest-infrastructure analysis report.
//
// # Data Flow
//
// A single run resolves the nearest piece of civic infrastructure to a
// coordinate via the Places API, enriches it with the current relative
// humidity from Open-Meteo, asks a generative model for a structured
// narrative, and merges place identity with the narrative into one Report.
//
// # Category Derivation
//
// The Places API returns a ranked list of machine categories per result
// (e.g. ["hospital", "health", "point_of_interest"]). The report's type is
// derived from the first entry: underscores become spaces and each word is
// title-cased, so "power_station" renders as "Power Station". An empty
// category list falls back to "Unknown".
package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// Coordinate is a WGS-84 latitude/longitude pair. Range validation is the
// caller's responsibility.
type Coordinate struct {
	Lat float64
	Lon float64
}

// String renders the coordinate as "lat,lon", the format the Places API
// expects for its location parameter.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Place is the nearest infrastructure entry returned by the place search.
type Place struct {
	Name          string
	Category      string   // display form, e.g. "Fire Station"
	RawCategories []string // provider categories in ranked order
}

// HumidityReading is the current relative humidity at 2m, in percent.
// Known is false when the lookup failed; humidity is best-effort context
// and never a hard dependency.
type HumidityReading struct {
	Percent int
	Known   bool
}

// String renders the reading for prompt embedding: the bare integer when
// known, the literal "not available" otherwise.
func (h HumidityReading) String() string {
	if !h.Known {
		return "not available"
	}
	return strconv.Itoa(h.Percent)
}

// AnalysisResult is the structured narrative produced by the generative
// model. All four fields are required; the gemini adapter fails closed on
// replies missing any of them.
type AnalysisResult struct {
	Summary         string   `json:"ai_summary"`
	ResourcesUsed   []string `json:"resources_used"`
	ImpactReduction []string `json:"impact_reduction"`
	IsCritical      bool     `json:"is_critical"`
}

// Report is the final merged output: place identity plus analysis fields,
// flattened into one object.
type Report struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Summary         string   `json:"ai_summary"`
	ResourcesUsed   []string `json:"resources_used"`
	ImpactReduction []string `json:"impact_reduction"`
	IsCritical      bool     `json:"is_critical"`
}

// AssembleReport merges a resolved place with its generated analysis.
// Pure function; the key sets are disjoint by construction.
func AssembleReport(place Place, analysis AnalysisResult) Report {
	return Report{
		Name:            place.Name,
		Type:            place.Category,
		Summary:         analysis.Summary,
		ResourcesUsed:   analysis.ResourcesUsed,
		ImpactReduction: analysis.ImpactReduction,
		IsCritical:      analysis.IsCritical,
	}
}

// Render serializes the report as pretty-printed JSON with 4-space indent.
func (r Report) Render() (string, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatCategory derives the display category from the provider's ranked
// category list: first entry, underscores replaced with spaces, each word
// title-cased. An empty list yields "Unknown".
func FormatCategory(rawCategories []string) string {
	raw := "unknown"
	if len(rawCategories) > 0 && rawCategories[0] != "" {
		raw = rawCategories[0]
	}
	return titleCase(strings.ReplaceAll(raw, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
