package llm

import (
	"context"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// Completer binds a provider and model so callers only see interfaces.LLMService
type Completer struct {
	factory   *ProviderFactory
	provider  ProviderType
	model     string
	operation models.AuditOperation
}

var _ interfaces.LLMService = (*Completer)(nil)

// Bind returns a completion service for one provider, model and audit operation.
// An empty model resolves to the provider's configured model.
func (f *ProviderFactory) Bind(provider ProviderType, model string, op models.AuditOperation) *Completer {
	if model == "" {
		model = f.DefaultModel(provider, op)
	}
	return &Completer{factory: f, provider: provider, model: model, operation: op}
}

// TextService is the configured text completion
func (f *ProviderFactory) TextService() *Completer {
	return f.Bind(ProviderType(f.llmConfig.DefaultProvider), "", models.AuditOpChat)
}

// VisionService is the configured vision completion
func (f *ProviderFactory) VisionService() *Completer {
	provider := f.llmConfig.VisionProvider
	if provider == "" {
		provider = f.llmConfig.DefaultProvider
	}
	return f.Bind(ProviderType(provider), "", models.AuditOpVision)
}

// Complete implements interfaces.LLMService
func (c *Completer) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	return c.generate(ctx, messages, nil)
}

// CompleteJSON implements interfaces.LLMService
func (c *Completer) CompleteJSON(ctx context.Context, messages []interfaces.Message, schema map[string]interface{}) (string, error) {
	return c.generate(ctx, messages, schema)
}

// Model implements interfaces.LLMService
func (c *Completer) Model() string {
	return string(c.provider) + "/" + c.model
}

func (c *Completer) generate(ctx context.Context, messages []interfaces.Message, schema map[string]interface{}) (string, error) {
	resp, err := c.factory.GenerateContent(ctx, &ContentRequest{
		Messages:     messages,
		Provider:     c.provider,
		Model:        c.model,
		OutputSchema: schema,
		Operation:    c.operation,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
