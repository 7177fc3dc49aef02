package llm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// convertMessagesToGemini converts messages to Gemini contents.
// System messages are returned separately for SystemInstruction; the first one wins.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if err := checkMessages(messages); err != nil {
		return nil, "", err
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := string(genai.RoleUser)
		if msg.Role == "assistant" {
			role = string(genai.RoleModel)
		}

		parts := make([]*genai.Part, 0, len(msg.Images)+1)
		for _, img := range msg.Images {
			parts = append(parts, genai.NewPartFromBytes(img.Data, mimeOrPNG(img.MIMEType)))
		}
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: parts,
		})
	}

	return contents, systemText, nil
}

// convertMessagesToClaude converts messages to Claude message params.
// Images are sent as base64 blocks ahead of the text in the same user turn.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if err := checkMessages(messages); err != nil {
		return nil, "", err
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		if msg.Role == "assistant" {
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Images)+1)
		for _, img := range msg.Images {
			encoded := base64.StdEncoding.EncodeToString(img.Data)
			blocks = append(blocks, anthropic.NewImageBlockBase64(mimeOrPNG(img.MIMEType), encoded))
		}
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		claudeMessages = append(claudeMessages, anthropic.NewUserMessage(blocks...))
	}

	return claudeMessages, systemText, nil
}

func checkMessages(messages []interfaces.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, msg := range messages {
		if msg.Role == "user" {
			return nil
		}
	}
	return fmt.Errorf("at least one message must have role 'user'")
}

func mimeOrPNG(mime string) string {
	if mime == "" {
		return "image/png"
	}
	return mime
}

// promptText flattens messages for the audit log; image parts are summarised by size
func promptText(messages []interfaces.Message) (string, int) {
	var b strings.Builder
	imageBytes := 0
	for _, msg := range messages {
		b.WriteString("[")
		b.WriteString(msg.Role)
		b.WriteString("] ")
		b.WriteString(msg.Content)
		for _, img := range msg.Images {
			imageBytes += len(img.Data)
			fmt.Fprintf(&b, " <image %s %d bytes>", mimeOrPNG(img.MIMEType), len(img.Data))
		}
		b.WriteString("\n")
	}
	return b.String(), imageBytes
}
