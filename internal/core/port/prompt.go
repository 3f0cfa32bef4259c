package port

type PromptKind string

const (
	PromptStatic PromptKind = "static"
	PromptSchema PromptKind = "schema"
)

type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptSpec describes a prompt offered by prompts/list.
type PromptSpec struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Kind        PromptKind
}

// RenderedPrompt is the text of a prompt after placeholder substitution.
type RenderedPrompt struct {
	Description string
	Text        string
}
