package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/senpaisaul/multimodal-rag/internal/app"
	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		pdfPath string
		outDir  string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to TOML config file (optional; uses mmrag.toml if present)")
	flag.StringVar(&pdfPath, "pdf", "", "PDF to load (required)")
	flag.StringVar(&outDir, "out", "charts", "Directory charts are written to")
	flag.Parse()

	if pdfPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mmrag-chat -pdf <file.pdf> [-config mmrag.toml] [-out charts]")
		os.Exit(2)
	}

	if cfgPath == "" {
		if _, err := os.Stat("mmrag.toml"); err == nil {
			cfgPath = "mmrag.toml"
		}
	}

	config, err := common.LoadFromFiles(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI
	config.Logging.Output = []string{"file"}
	logger := common.SetupLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", pdfPath, err)
		os.Exit(1)
	}

	fmt.Printf("Processing %s...\n", filepath.Base(pdfPath))
	result, err := application.DocumentService.Load(context.Background(), filepath.Base(pdfPath), data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", pdfPath, err)
		os.Exit(1)
	}

	summary := fmt.Sprintf("%s: %d pages, %d text and %d vision records",
		result.Document.Name,
		result.Document.Pages,
		result.Records[models.ModalityText],
		result.Records[models.ModalityVision],
	)

	m := tui.New(application.DocumentService, summary, outDir, 2*config.LLMTimeout())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ui: %v\n", err)
		os.Exit(1)
	}
}
