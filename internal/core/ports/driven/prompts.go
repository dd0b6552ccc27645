package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in default
	// or an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswerSystem is the system prompt for answer generation.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser frames the question and retrieved context.
	// The template expects %s (numbered context) then %s (question).
	PromptAnswerUser = "answer_user"
)

// Built-in prompt templates, used when no user override exists.
const (
	DefaultAnswerSystemPrompt = `You are Quarry, a research assistant that answers questions from the user's indexed documents.

Answer using only the numbered context provided. Cite the context items you rely on by their number, e.g. [2].
If the context does not contain the answer, say so plainly instead of guessing.`

	DefaultAnswerUserPrompt = `Context:
%s

Question: %s

Answer:`
)
