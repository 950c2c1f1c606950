package usecase

import (
	"regexp"
	"strings"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

// Field importance weights. Title matches carry the most signal, fix
// procedures the least.
const (
	titleWeight       = 10.0
	descriptionWeight = 5.0
	checkWeight       = 3.0
	fixWeight         = 2.0
)

// Multi-word technical terms that should match as units rather than as
// independent tokens.
var techPhrasePatterns = compilePatterns([]string{
	`ssh\s+key[s]?`,
	`ssh\s+config\w*`,
	`password\s+policy`,
	`password\s+complexity`,
	`account\s+lockout`,
	`session\s+timeout`,
	`file\s+permission[s]?`,
	`access\s+control`,
	`audit\s+log[s]?`,
	`system\s+log[s]?`,
	`security\s+policy`,
	`login\s+banner`,
	`root\s+access`,
	`user\s+account[s]?`,
	`network\s+service[s]?`,
	`system\s+service[s]?`,
	`kernel\s+parameter[s]?`,
	`boot\s+loader`,
	`file\s+system`,
	`mount\s+point[s]?`,
	`certificate\s+authority`,
	`public\s+key`,
	`private\s+key`,
	`cryptographic\s+\w+`,
	`mandatory\s+access\s+control`,
	`discretionary\s+access\s+control`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// extractTechPhrases returns every technical phrase present in the raw
// lowercased query.
func extractTechPhrases(queryLower string) []string {
	var phrases []string
	for _, pattern := range techPhrasePatterns {
		phrases = append(phrases, pattern.FindAllString(queryLower, -1)...)
	}
	return phrases
}

// scoreControl computes the relevance of one control against a query.
// queryLower is the raw lowercased question; tokens are the enhanced-query
// tokens in first-occurrence order. The result is never negative and is not
// normalized across controls.
func scoreControl(control domain.Control, queryLower string, tokens []string) float64 {
	title := strings.ToLower(control.Title)
	description := strings.ToLower(control.Description)
	check := strings.ToLower(control.Check)
	fix := strings.ToLower(control.Fix)

	score := 0.0

	// Exact phrase containment, first matching field only.
	switch {
	case strings.Contains(title, queryLower):
		score += 50.0 * titleWeight
	case strings.Contains(description, queryLower):
		score += 25.0 * descriptionWeight
	case strings.Contains(check, queryLower):
		score += 15.0 * checkWeight
	case strings.Contains(fix, queryLower):
		score += 10.0 * fixWeight
	}

	// Technical phrase hits, cumulative across phrases.
	for _, phrase := range extractTechPhrases(queryLower) {
		switch {
		case strings.Contains(title, phrase):
			score += 30.0 * titleWeight
		case strings.Contains(description, phrase):
			score += 15.0 * descriptionWeight
		case strings.Contains(check, phrase):
			score += 10.0 * checkWeight
		case strings.Contains(fix, phrase):
			score += 5.0 * fixWeight
		}
	}

	// Token hits with diminishing returns across matched tokens.
	titleWords := wordSet(title)
	descriptionWords := wordSet(description)
	checkWords := wordSet(check)
	fixWords := wordSet(fix)

	matched := 0
	for _, token := range tokens {
		tokenScore := 0.0
		if _, ok := titleWords[token]; ok {
			tokenScore += titleWeight
		}
		if _, ok := descriptionWords[token]; ok {
			tokenScore += descriptionWeight
		}
		if _, ok := checkWords[token]; ok {
			tokenScore += checkWeight
		}
		if _, ok := fixWords[token]; ok {
			tokenScore += fixWeight
		}
		if tokenScore > 0 {
			matched++
			multiplier := 1.0 - float64(matched)*0.1
			if multiplier < 0.3 {
				multiplier = 0.3
			}
			score += tokenScore * multiplier
		}
	}

	switch control.Severity {
	case domain.SeverityHigh:
		score *= 1.3
	case domain.SeverityMedium:
		score *= 1.1
	}

	// Very verbose controls are usually less specific.
	if len(title)+len(description)+len(check)+len(fix) > 5000 {
		score *= 0.8
	}

	return score
}

func wordSet(s string) map[string]struct{} {
	words := wordPattern.FindAllString(s, -1)
	out := make(map[string]struct{}, len(words))
	for _, word := range words {
		out[word] = struct{}{}
	}
	return out
}
