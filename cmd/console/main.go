package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL  string
	StoryFile   string
	KeepHistory bool
	Timeout     time.Duration
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
		StoryFile:   getEnv("STORY_FILE", ""),
		KeepHistory: getEnv("KEEP_HISTORY", "") == "true",
		Timeout:     30 * time.Second,
	}
	if len(os.Args) > 1 {
		cfg.StoryFile = os.Args[1]
	}

	var b backend
	if cfg.StoryFile != "" {
		local, err := newLocalBackend(cfg.StoryFile, cfg.KeepHistory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load story file: %v\n", err)
			os.Exit(1)
		}
		b = local
	} else {
		client := &http.Client{
			Timeout: cfg.Timeout,
		}
		if !testConnection(client, cfg.APIBaseURL) {
			fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\nOr pass a story file to play offline.\n")
			os.Exit(1)
		}
		b = newRemoteBackend(client, cfg.APIBaseURL, cfg.KeepHistory)
	}

	p := tea.NewProgram(NewConsoleUI(b),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
