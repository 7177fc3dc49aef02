package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/documents"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := textResult(fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

func modalityArg(request mcp.CallToolRequest) (*models.Modality, error) {
	raw := request.GetString("modality", "")
	if raw == "" {
		return nil, nil
	}
	m, err := models.ParseModality(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// handleLoadDocument implements the load_document tool
func handleLoadDocument(docs *documents.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil || strings.TrimSpace(path) == "" {
			return errorResult("Error: path parameter is required"), nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return errorResult("Cannot read %s: %v", path, err), nil
		}

		result, err := docs.Load(ctx, filepath.Base(path), data)
		if err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Load failed")
			return errorResult("Load failed: %v", err), nil
		}

		return textResult(formatLoadResult(result)), nil
	}
}

// handleAsk implements the ask tool
func handleAsk(docs *documents.Service, outputDir string, logger arbor.ILogger) server.ToolHandlerFunc {
	return answerTool(docs.Ask, outputDir, logger)
}

// handlePlot implements the plot tool
func handlePlot(docs *documents.Service, outputDir string, logger arbor.ILogger) server.ToolHandlerFunc {
	return answerTool(docs.Plot, outputDir, logger)
}

type answerFunc func(ctx context.Context, question string, modality *models.Modality) (*chat.Answer, error)

func answerTool(fn answerFunc, outputDir string, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return errorResult("Error: question parameter is required"), nil
		}
		modality, err := modalityArg(request)
		if err != nil {
			return errorResult("Error: %v", err), nil
		}

		answer, err := fn(ctx, question, modality)
		if err != nil {
			logger.Warn().Err(err).Str("question", question).Msg("Question failed")
			return errorResult("Error: %v", err), nil
		}

		chartPath := ""
		if answer.Chart != nil {
			chartPath = filepath.Join(outputDir, chartFileName(answer.Chart.Spec.Title))
			if err := os.WriteFile(chartPath, answer.Chart.Data, 0644); err != nil {
				return errorResult("Chart rendered but could not be written to %s: %v", chartPath, err), nil
			}
		}

		return textResult(formatAnswer(answer, chartPath)), nil
	}
}

// handleListRecords implements the list_records tool
func handleListRecords(docs *documents.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		modality, err := modalityArg(request)
		if err != nil {
			return errorResult("Error: %v", err), nil
		}
		limit := request.GetInt("limit", 50)
		if limit <= 0 {
			limit = 50
		}

		records, err := docs.Records(modality)
		if err != nil {
			return errorResult("Error: %v", err), nil
		}

		return textResult(formatRecords(records, limit)), nil
	}
}

// handleCurrentDocument implements the current_document tool
func handleCurrentDocument(docs *documents.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := docs.Current()
		if err != nil {
			return errorResult("Error: %v", err), nil
		}
		return textResult(formatSummary(summary)), nil
	}
}

// handleExportTranscript implements the export_transcript tool
func handleExportTranscript(docs *documents.Service, outputDir string, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := docs.Current()
		if err != nil {
			return errorResult("Error: %v", err), nil
		}

		path := request.GetString("path", "")
		if path == "" {
			path = filepath.Join(outputDir, fmt.Sprintf("transcript-%s.pdf", summary.SessionID))
		}

		pdf, err := docs.Transcript()
		if err != nil {
			logger.Error().Err(err).Msg("Transcript failed")
			return errorResult("Transcript failed: %v", err), nil
		}
		if err := os.WriteFile(path, pdf, 0644); err != nil {
			return errorResult("Cannot write %s: %v", path, err), nil
		}

		return textResult(fmt.Sprintf("Transcript of %d question(s) written to %s", summary.Turns, path)), nil
	}
}
