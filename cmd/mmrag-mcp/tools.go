package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createLoadDocumentTool returns the load_document tool definition
func createLoadDocumentTool() mcp.Tool {
	return mcp.NewTool("load_document",
		mcp.WithDescription("Load a PDF from disk, extract its text and images, and make it the current document. Replaces any previously loaded document."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
}

// createAskTool returns the ask tool definition
func createAskTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Ask a question about the current document. Questions asking to plot, graph or chart something produce a chart PDF written to disk."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question"),
		),
		mcp.WithString("modality",
			mcp.Description("Restrict retrieval to text or vision records (default: inferred from the question)"),
			mcp.Enum("text", "vision"),
		),
	)
}

// createPlotTool returns the plot tool definition
func createPlotTool() mcp.Tool {
	return mcp.NewTool("plot",
		mcp.WithDescription("Draw a chart of data from the current document. The chart PDF is written to disk and its path returned."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("What to chart, e.g. 'revenue by quarter'"),
		),
		mcp.WithString("modality",
			mcp.Description("Restrict retrieval to text or vision records"),
			mcp.Enum("text", "vision"),
		),
	)
}

// createListRecordsTool returns the list_records tool definition
func createListRecordsTool() mcp.Tool {
	return mcp.NewTool("list_records",
		mcp.WithDescription("List the indexed records of the current document"),
		mcp.WithString("modality",
			mcp.Description("Filter: text or vision"),
			mcp.Enum("text", "vision"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records (default: 50)"),
		),
	)
}

// createCurrentDocumentTool returns the current_document tool definition
func createCurrentDocumentTool() mcp.Tool {
	return mcp.NewTool("current_document",
		mcp.WithDescription("Describe the currently loaded document and its index"),
	)
}

// createExportTranscriptTool returns the export_transcript tool definition
func createExportTranscriptTool() mcp.Tool {
	return mcp.NewTool("export_transcript",
		mcp.WithDescription("Write the question history of the current document to a PDF"),
		mcp.WithString("path",
			mcp.Description("Output path (default: transcript-{session}.pdf in the output directory)"),
		),
	)
}
