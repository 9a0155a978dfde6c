// Package safety provides the deterministic keyword layer of safety detection.
// It is pure and synchronous so it always runs, whatever state the model-based
// classifier is in.
package safety

import (
	"strings"
	"unicode"

	model "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
)

// Phrase tiers. Emergency phrases describe life-threatening or
// requires-immediate-help situations; concern phrases cover injury, fear,
// isolation and strangers. Emotion phrases are serious emotional-distress
// indicators that warrant guardian attention even without a physical concern.
var (
	emergencyPhrases = []string{
		"emergency", "911", "can't breathe", "cant breathe", "chest pain",
		"bleeding badly", "unconscious", "fire", "smoke", "poison", "overdose",
	}

	concernPhrases = []string{
		"hurt", "hurts", "pain", "bleeding", "fell", "sick", "scared", "afraid",
		"stranger", "alone", "help", "broken", "blood", "crying", "dizzy",
	}

	emotionPhrases = []string{
		"hate", "everyone hates me", "hurt myself", "go away",
		"leave me alone forever", "nobody likes me",
	}
)

// Result is the outcome of one scan. Severity is a floor for the final
// decision, never a ceiling.
type Result struct {
	Severity  model.Severity
	Matches   []string
	Emotional bool
}

// Scan checks text against the phrase tiers and returns the minimum severity
// it guarantees. Matching is case-insensitive and token-based: a phrase only
// hits when every word of it appears as whole words in sequence, so "firefly"
// never trips the "fire" tier.
func Scan(text string) Result {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Result{Severity: model.SeverityInfo}
	}

	joined := " " + strings.Join(tokens, " ") + " "

	result := Result{Severity: model.SeverityInfo}
	for _, phrase := range emergencyPhrases {
		if containsPhrase(joined, phrase) {
			result.Severity = model.SeverityEmergency
			result.Matches = append(result.Matches, phrase)
		}
	}
	if result.Severity == model.SeverityEmergency {
		return result
	}

	for _, phrase := range concernPhrases {
		if containsPhrase(joined, phrase) {
			result.Severity = model.SeverityWarning
			result.Matches = append(result.Matches, phrase)
		}
	}

	for _, phrase := range emotionPhrases {
		if containsPhrase(joined, phrase) {
			result.Severity = model.MaxSeverity(result.Severity, model.SeverityWarning)
			result.Matches = append(result.Matches, phrase)
			result.Emotional = true
		}
	}

	return result
}

// containsPhrase matches a normalized phrase against the space-padded token
// string, so every phrase boundary is a word boundary.
func containsPhrase(joined, phrase string) bool {
	normalized := strings.Join(tokenize(phrase), " ")
	if normalized == "" {
		return false
	}
	return strings.Contains(joined, " "+normalized+" ")
}

// tokenize lowercases and splits on anything that is not a letter, digit or
// in-word apostrophe, keeping contractions like "can't" intact.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
