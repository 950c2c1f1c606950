package usecase

import (
	"regexp"
	"strings"
)

// termSynonyms maps common question terms to STIG vocabulary so that a casual
// query still hits the precise wording used by control text.
var termSynonyms = []struct {
	term     string
	synonyms string
}{
	{"ssh", "ssh secure shell openssh"},
	{"firewall", "firewall iptables nftables netfilter"},
	{"selinux", "selinux security enhanced linux mandatory access control"},
	{"password", "password passwd authentication credential"},
	{"audit", "audit auditd logging log"},
	{"encryption", "encryption encrypt crypto cryptographic"},
	{"user", "user account login username"},
	{"permission", "permission permissions privilege access"},
	{"network", "network networking tcp ip"},
	{"service", "service daemon systemd"},
	{"file", "file filesystem directory"},
	{"security", "security secure"},
	{"configuration", "configuration config configure"},
	{"policy", "policy policies rule"},
	{"access", "access control authorization"},
	{"system", "system operating os"},
	{"kernel", "kernel system"},
	{"root", "root administrator admin superuser"},
	{"login", "login logon authentication"},
	{"certificate", "certificate cert x509 ssl tls"},
	{"key", "key private public cryptographic"},
	{"compliance", "compliance compliant requirement"},
	{"vulnerability", "vulnerability vuln cve security"},
	{"patch", "patch update upgrade"},
	{"backup", "backup restore recovery"},
	{"monitoring", "monitoring monitor surveillance"},
	{"lockout", "lockout lock account disable"},
	{"timeout", "timeout session idle"},
	{"banner", "banner notice warning message"},
	{"integrity", "integrity checksum hash verification"},
}

// queryStopwords are filler words stripped from queries before token scoring.
var queryStopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "must": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {}, "which": {},
	"who": {}, "that": {}, "this": {}, "these": {}, "those": {},
	"a": {}, "an": {}, "some": {}, "any": {}, "all": {}, "each": {},
	"every": {}, "many": {}, "much": {},
	"show": {}, "tell": {}, "explain": {}, "describe": {}, "help": {},
	"need": {}, "want": {}, "get": {}, "make": {},
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// enhanceQuery appends synonym expansions for every mapped term contained in
// the lowercased query. Pure and deterministic.
func enhanceQuery(queryLower string) string {
	enhanced := queryLower
	for _, mapping := range termSynonyms {
		if strings.Contains(queryLower, mapping.term) {
			enhanced += " " + mapping.synonyms
		}
	}
	return enhanced
}

// tokenizeQuery extracts scoring tokens from the enhanced query: lowercase
// words longer than two characters that are not stopwords, deduplicated in
// first-occurrence order.
func tokenizeQuery(enhanced string) []string {
	words := wordPattern.FindAllString(strings.ToLower(enhanced), -1)
	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		if _, stop := queryStopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}
	return tokens
}
