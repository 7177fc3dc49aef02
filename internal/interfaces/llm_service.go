package interfaces

import (
	"context"
)

// ImagePart is an inline image attached to a message
type ImagePart struct {
	Data     []byte
	MIMEType string // e.g. "image/png"
}

// Message represents a single message in a completion request
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string

	// Images are sent alongside Content for vision completions
	Images []ImagePart
}

// LLMService is a bound text or vision completion: messages in, string out.
// Vision completions use the same contract with image parts on a user message.
type LLMService interface {
	// Complete returns the model's reply to the conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteJSON asks for a JSON reply shaped by schema. Providers that cannot
	// enforce a schema fall back to Complete; callers still validate the reply.
	CompleteJSON(ctx context.Context, messages []Message, schema map[string]interface{}) (string, error)

	// Model returns "<provider>/<model>" for logging and auditing.
	Model() string
}
