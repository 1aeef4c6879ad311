package domain

import "strings"

// Intent is the category a query is routed by.
type Intent string

// Known intents.
const (
	// IntentProcessRelated is a question the retrieval pipeline should answer.
	IntentProcessRelated Intent = "PROCESS_RELATED"

	// IntentGreeting is a salutation such as "Hallo".
	IntentGreeting Intent = "GREETING"

	// IntentChitchat is small talk about the assistant itself.
	IntentChitchat Intent = "CHITCHAT"

	// IntentOffTopic is unrelated to administrative processes.
	IntentOffTopic Intent = "OFF_TOPIC"

	// IntentUnclear is too short or vague to route.
	IntentUnclear Intent = "UNCLEAR"

	// IntentFollowUp is reserved for follow-up questions. The classifier never
	// emits it; follow-ups resolve to IntentProcessRelated.
	IntentFollowUp Intent = "FOLLOWUP"
)

// AllIntents returns the intents the classifier can emit, in the order a
// model response is scanned.
func AllIntents() []Intent {
	return []Intent{
		IntentProcessRelated,
		IntentGreeting,
		IntentChitchat,
		IntentOffTopic,
		IntentUnclear,
	}
}

// ParseIntent maps a case-insensitive name to an Intent.
func ParseIntent(s string) (Intent, bool) {
	norm := Intent(strings.ToUpper(strings.TrimSpace(s)))
	for _, i := range AllIntents() {
		if i == norm {
			return i, true
		}
	}
	if norm == IntentFollowUp {
		return IntentFollowUp, true
	}
	return "", false
}

// String returns the intent name.
func (i Intent) String() string {
	return string(i)
}

// ShouldUseRAG reports whether the intent goes through retrieval.
// Only IntentProcessRelated does.
func (i Intent) ShouldUseRAG() bool {
	return i == IntentProcessRelated
}

var fallbackMessages = map[Intent]string{
	IntentGreeting: "Hallo! Ich bin der Prozessberater für die Hochschulverwaltung. " +
		"Ich kann Ihnen bei Fragen zu Prozessen wie Elternzeit, Mutterschutz, " +
		"Dienstreisen oder anderen Verwaltungsabläufen helfen. " +
		"Wie kann ich Ihnen behilflich sein?",
	IntentChitchat: "Danke der Nachfrage! Ich bin ein spezialisierter Assistent für Hochschulprozesse. " +
		"Smalltalk liegt leider nicht in meinem Fachgebiet. " +
		"Aber ich helfe Ihnen gerne bei Fragen zu Themen wie Elternzeit, Mutterschutz, " +
		"Dienstreisen oder anderen Prozessen an der Hochschule.",
	IntentOffTopic: "Diese Frage liegt leider außerhalb meines Wissensbereichs. " +
		"Ich bin auf Hochschulprozesse und -richtlinien spezialisiert. " +
		"Haben Sie eine Frage zu einem bestimmten Prozess, z.B. Antragstellung, " +
		"Genehmigungen oder Zuständigkeiten?",
	IntentUnclear: "Könnten Sie Ihre Frage bitte etwas präziser formulieren? " +
		"Ich helfe Ihnen gerne bei Themen wie Antragsprozessen, Richtlinien, " +
		"Mutterschutz, Elternzeit oder anderen Hochschulverwaltungsthemen.",
}

// FallbackMessage returns the canned reply for a non-retrieval intent.
// Intents without an entry get the UNCLEAR reply.
func (i Intent) FallbackMessage() string {
	if msg, ok := fallbackMessages[i]; ok {
		return msg
	}
	return fallbackMessages[IntentUnclear]
}

// Classification is the routing decision for one query.
type Classification struct {
	// Intent is the chosen category.
	Intent Intent `json:"intent"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence"`
}

// NewClassification clamps confidence into [0, 1].
func NewClassification(intent Intent, confidence float64) Classification {
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return Classification{Intent: intent, Confidence: confidence}
}

// ChatRole is the author of a conversation turn.
type ChatRole string

// Conversation roles.
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatTurn is one message of the conversation history.
type ChatTurn struct {
	Role    ChatRole `json:"role" yaml:"role"`
	Content string   `json:"content" yaml:"content"`
}

// LastAssistant returns the most recent assistant message, or an empty string.
func LastAssistant(history []ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == ChatRoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
