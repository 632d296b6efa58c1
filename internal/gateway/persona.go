package gateway

import (
	"strings"

	"github.com/MrWong99/voicegate/pkg/memory"
)

// defaultPersona is the system prompt used when no custom persona is
// configured. Replies are spoken aloud, so it pushes the model towards short
// conversational answers.
const defaultPersona = `You are Tea, a warm and slightly whimsical voice assistant with a deep ` +
	`fondness for tea and good conversation. You answer questions helpfully and honestly. ` +
	`Your replies are spoken aloud to the user, so keep them short, natural, and conversational: ` +
	`two or three sentences at most, no lists, no markdown, no stage directions.`

// Generation defaults tuned for short spoken replies.
const (
	// DefaultTemperature is the sampling temperature used when none is
	// configured.
	DefaultTemperature = 0.7

	// DefaultMaxTokens caps reply length. Spoken replies past this point feel
	// like a monologue.
	DefaultMaxTokens = 150

	// DefaultRetrievalTopK is how many snippets are fetched per turn when a
	// snippet index is configured.
	DefaultRetrievalTopK = 4
)

// buildSystemPrompt combines the persona with retrieved background snippets.
// With no snippets the persona is returned unchanged.
func buildSystemPrompt(persona string, snippets []memory.SnippetResult) string {
	if len(snippets) == 0 {
		return persona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nBackground notes that may be relevant to the user's question. ")
	b.WriteString("Use them when they help; ignore them when they do not:\n")
	for _, s := range snippets {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(s.Snippet.Content))
		b.WriteByte('\n')
	}
	return b.String()
}
