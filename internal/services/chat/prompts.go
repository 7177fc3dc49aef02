package chat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/senpaisaul/multimodal-rag/internal/services/graph"
	"github.com/senpaisaul/multimodal-rag/internal/services/vision"
)

// NoInformationMessage is returned without calling the model when retrieval finds nothing
const NoInformationMessage = "No relevant information found in the document."

// CannotFindMessage is the refusal the QA prompt asks the model to use
const CannotFindMessage = "I cannot find this information in the document."

// DefaultQASystemPrompt restricts answers to the retrieved context
const DefaultQASystemPrompt = `You are a document-grounded assistant.

RULES:
- Use ONLY the provided context
- Do NOT use outside knowledge
- If the answer is not present, say:
  "` + CannotFindMessage + `"`

// DefaultQAUserTemplate carries the context and the question; {context} and {query} are substituted
const DefaultQAUserTemplate = "Context:\n{context}\n\nQuestion: {query}"

// Prompts holds every prompt the pipeline sends to a model
type Prompts struct {
	QASystem string `yaml:"qa_system"`
	QAUser   string `yaml:"qa_user"`
	Vision   string `yaml:"vision"`
	Graph    string `yaml:"graph"`
}

// DefaultPrompts returns the built-in prompts
func DefaultPrompts() *Prompts {
	return &Prompts{
		QASystem: DefaultQASystemPrompt,
		QAUser:   DefaultQAUserTemplate,
		Vision:   vision.DefaultPrompt,
		Graph:    graph.DefaultPrompt,
	}
}

// LoadPrompts reads YAML overrides from path on top of the defaults.
// Keys missing from the file keep their built-in value; an empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if overrides.QASystem != "" {
		prompts.QASystem = overrides.QASystem
	}
	if overrides.QAUser != "" {
		prompts.QAUser = overrides.QAUser
	}
	if overrides.Vision != "" {
		prompts.Vision = overrides.Vision
	}
	if overrides.Graph != "" {
		prompts.Graph = overrides.Graph
	}
	return prompts, nil
}
