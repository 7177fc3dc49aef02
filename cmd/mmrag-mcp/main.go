package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/senpaisaul/multimodal-rag/internal/app"
	"github.com/senpaisaul/multimodal-rag/internal/common"
)

func main() {
	common.InstallCrashHandler(common.LogsDir())
	defer common.RecoverWithCrashFile()

	_ = godotenv.Load()

	var configFiles []string
	configPath := os.Getenv("MMRAG_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("mmrag.toml"); err == nil {
			configPath = "mmrag.toml"
		}
	}
	if configPath != "" {
		configFiles = append(configFiles, configPath)
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs only go to file
	config.Logging.Output = []string{"file"}
	logger := common.SetupLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	outputDir := os.Getenv("MMRAG_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = os.TempDir()
	}

	mcpServer := server.NewMCPServer(
		"mmrag",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	docs := application.DocumentService
	mcpServer.AddTool(createLoadDocumentTool(), handleLoadDocument(docs, logger))
	mcpServer.AddTool(createAskTool(), handleAsk(docs, outputDir, logger))
	mcpServer.AddTool(createPlotTool(), handlePlot(docs, outputDir, logger))
	mcpServer.AddTool(createListRecordsTool(), handleListRecords(docs, logger))
	mcpServer.AddTool(createCurrentDocumentTool(), handleCurrentDocument(docs, logger))
	mcpServer.AddTool(createExportTranscriptTool(), handleExportTranscript(docs, outputDir, logger))

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
