package domain

import "strings"

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// NormalizeSeverity lowers the raw value and defaults unknown levels to medium.
func NormalizeSeverity(raw string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Control is a single STIG control record. Text fields are empty strings when
// the source data omits them.
type Control struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Check       string   `json:"check"`
	Fix         string   `json:"fix"`
	Severity    Severity `json:"severity"`
	VersionTag  string   `json:"rhel_version,omitempty"`
}

type CorpusStats struct {
	Status           string   `json:"status"`
	TotalControls    int      `json:"total_controls"`
	SearchMethod     string   `json:"search_method"`
	BackendAvailable bool     `json:"llama_available"`
	BackendURL       string   `json:"ollama_url"`
	BackendModel     string   `json:"llama_model"`
	DataSource       string   `json:"data_source"`
	VersionTags      []string `json:"rhel_versions"`
}
