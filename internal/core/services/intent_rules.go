package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// Rule confidences.
const (
	confidenceKeyword       = 0.95
	confidenceShortGreeting = 0.95
	confidenceShortUnclear  = 0.8
	confidenceExactGreeting = 0.95
	confidencePrefixGreet   = 0.9
	confidenceChitchat      = 0.9
	confidenceQuestion      = 0.7
	confidenceModel         = 0.85
	confidenceModelFailed   = 0.5
	confidenceFollowUp      = 0.8
	confidenceBoost         = 0.7
)

var greetingPatterns = []string{
	"hi", "hallo", "hey", "guten tag", "guten morgen", "guten abend",
	"moin", "servus", "grüß gott", "hello", "grüezi",
}

var chitchatPatterns = []string{
	"wie geht", "wie gehts", "wie gehts dir", "wie steht es", "wie stehts",
	"was machst du", "wer bist du", "wie heißt du", "was kannst du", "was bist du",
	"erzähl mir was", "langweilig", "lustig", "alles klar", "na",
}

var processKeywords = []string{
	// HR
	"elternzeit", "mutterschutz", "dienstreise", "urlaub", "krankmeldung",
	"arbeitszeit", "teilzeit", "homeoffice", "gehalt", "lohn",
	// Applications
	"antrag", "formular", "genehmigung", "unterschrift", "freigabe",
	// Processes
	"prozess", "ablauf", "workflow", "schritt", "zuständigkeit",
	// University
	"hochschule", "hka", "studium", "prüfung", "immatrikulation",
	"exmatrikulation", "anrechnung", "semester", "vorlesung",
	"notenumrechnung", "studienleistung", "creditpoints",
	// Regulations
	"richtlinie", "vorschrift", "regelung", "gesetz", "verordnung",
}

var questionStarters = []string{
	"was ", "wie ", "wer ", "wann ", "wo ", "warum ", "welche", "können ", "muss ", "darf ",
}

var followUpPatterns = []string{
	"nochmal", "noch einmal", "mehr details", "genauer", "was meinst du",
	"wie meinst du", "erkläre", "und dann",
	"again", "more details", "what do you mean", "tell me more", "explain",
}

// Rule stages, reported to metrics.
const (
	stageKeyword  = "keyword"
	stageGreeting = "greeting"
	stageUnclear  = "short"
	stageChitchat = "chitchat"
	stageQuestion = "question"
	stageModel    = "model"
	stageCache    = "cache"
	stageDefault  = "default"
	stageFollowUp = "followup"
	stageBoost    = "boost"
	stageJudge    = "judge"
)

// ClassifyRules applies the lexical rules to a query. The second return is
// the rule stage that matched, or an empty string if the query needs a model.
func ClassifyRules(query string) (domain.Classification, string) {
	q := strings.ToLower(strings.TrimSpace(query))
	n := utf8.RuneCountInString(q)

	// Keywords come first so "Hallo, ... Elternzeit" is not a greeting.
	for _, kw := range processKeywords {
		if strings.Contains(q, kw) {
			return domain.NewClassification(domain.IntentProcessRelated, confidenceKeyword), stageKeyword
		}
	}

	if n < 5 {
		for _, p := range greetingPatterns {
			if strings.HasPrefix(q, p) {
				return domain.NewClassification(domain.IntentGreeting, confidenceShortGreeting), stageGreeting
			}
		}
		return domain.NewClassification(domain.IntentUnclear, confidenceShortUnclear), stageUnclear
	}

	if n < 30 {
		for _, p := range greetingPatterns {
			if q == p || q == p+"!" {
				return domain.NewClassification(domain.IntentGreeting, confidenceExactGreeting), stageGreeting
			}
			if strings.HasPrefix(q, p) && !strings.Contains(q, "?") && n < 15 {
				return domain.NewClassification(domain.IntentGreeting, confidencePrefixGreet), stageGreeting
			}
		}
	}

	for _, p := range chitchatPatterns {
		if matchPattern(q, p) {
			return domain.NewClassification(domain.IntentChitchat, confidenceChitchat), stageChitchat
		}
	}

	if n > 15 && isQuestion(q) {
		return domain.NewClassification(domain.IntentProcessRelated, confidenceQuestion), stageQuestion
	}

	return domain.Classification{}, ""
}

// IsFollowUp reports whether a short query asks to continue the previous answer.
func IsFollowUp(query string, history []domain.ChatTurn) bool {
	if len(history) < 2 {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) >= 60 {
		return false
	}
	for _, p := range followUpPatterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func isQuestion(q string) bool {
	for _, s := range questionStarters {
		if strings.HasPrefix(q, s) || strings.Contains(q, " "+s) {
			return true
		}
	}
	return false
}

// matchPattern matches very short patterns as whole words only, so "na"
// does not fire on "Nachweis".
func matchPattern(q, pattern string) bool {
	if utf8.RuneCountInString(pattern) > 2 {
		return strings.Contains(q, pattern)
	}
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == pattern {
			return true
		}
	}
	return false
}

// parseModelIntent returns the first intent name contained in a model reply.
func parseModelIntent(reply string) (domain.Intent, bool) {
	norm := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(reply)), " ", "_")
	for _, intent := range domain.AllIntents() {
		if strings.Contains(norm, intent.String()) {
			return intent, true
		}
	}
	return "", false
}
