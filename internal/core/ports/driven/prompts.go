package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptIntentClassify asks the model for one intent name.
	// The template expects a %s placeholder for the query.
	PromptIntentClassify = "intent_classify"

	// PromptIntentJudge asks the model to confirm or override a non-process classification.
	// The template expects %s (query), %s (intent) and %.2f (confidence) placeholders.
	PromptIntentJudge = "intent_judge"

	// PromptQueryReformulate rewrites a follow-up into a standalone question.
	// The template expects %s (history) and %s (query) placeholders.
	PromptQueryReformulate = "query_reformulate"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts holds the built-in templates. Prompt stores seed their files
// from it and services fall back to it when no store is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptIntentClassify: `Klassifiziere die folgende Benutzeranfrage.

Anfrage: "%s"

Kategorien:
- PROCESS_RELATED: Frage zu Hochschulprozessen, Richtlinien, Mutterschutz, Elternzeit, Dienstreisen, Prüfungen, etc.
- GREETING: Begrüßung wie "Hallo", "Hi", "Guten Tag"
- CHITCHAT: Smalltalk wie "Wie geht's?", "Was machst du?", "Wer bist du?"
- OFF_TOPIC: Komplett unrelated (Sport, Wetter, Politik, Rezepte, etc.)
- UNCLEAR: Zu kurz oder unklar, was gemeint ist

Antworte NUR mit dem Kategorie-Namen (z.B. "PROCESS_RELATED").`,

	PromptIntentJudge: `Du prüfst die Klassifikation einer Anfrage an einen Assistenten für Hochschulprozesse.

Anfrage: "%s"
Vorgeschlagene Kategorie: %s (Konfidenz %.2f)

Antworte CONFIRM, wenn die Kategorie zutrifft.
Antworte OVERRIDE, wenn die Anfrage eine Frage zu Prozessen, Anträgen, Richtlinien oder Zuständigkeiten sein könnte.

Antworte NUR mit CONFIRM oder OVERRIDE.`,

	PromptQueryReformulate: `Du bist ein Query-Reformulator für ein Suchsystem über Hochschulprozesse.

Gegeben die Konversationshistorie und eine Follow-up Frage, formuliere die Frage
so um, dass sie als eigenständige Suchanfrage funktioniert.

REGELN:
1. Ersetze Pronomen (sie, er, es, das, diese) durch konkrete Begriffe aus der Historie
2. Nenne das Hauptthema der Konversation in der Frage
3. Entferne Füllwörter wie "und" am Anfang
4. Gib NUR die reformulierte Frage zurück, KEINE Erklärungen

BEISPIEL:
Konversation:
Nutzer: Was ist Elternzeit?
Assistent: Elternzeit ist ein Schutzrecht für Eltern...

Follow-up Frage: Wie lange dauert sie?
Eigenständige Frage: Wie lange dauert die Elternzeit?

Jetzt reformuliere diese Frage:

Konversation:
%s

Follow-up Frage: %s

Eigenständige Frage:`,
}
