package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner and logs the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("mmrag", GetVersion())

	fmt.Printf("  listening  http://%s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Printf("  llm        %s (vision: %s)\n", config.LLM.DefaultProvider, config.VisionProvider())
	fmt.Printf("  embedding  %s\n", config.Embedding.Provider)
	fmt.Printf("  index      %s\n\n", config.Index.Backend)

	logger.Info().
		Str("version", GetVersion()).
		Str("llm", string(config.LLM.DefaultProvider)).
		Str("vision", string(config.VisionProvider())).
		Str("embedding", config.Embedding.Provider).
		Str("index", config.Index.Backend).
		Int("top_k", config.Retrieval.TopK).
		Msg("Configuration loaded")
}
