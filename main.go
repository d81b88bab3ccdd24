package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdxmph/tasks-tui/internal/config"
	"github.com/pdxmph/tasks-tui/internal/db"
	"github.com/pdxmph/tasks-tui/internal/tasks"
	"github.com/pdxmph/tasks-tui/internal/timer"
	"github.com/pdxmph/tasks-tui/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default ~/.config/tasks-tui/config.toml)")
	dbPath := flag.String("db", "", "Path to the task database (overrides config)")
	initDB := flag.Bool("init", false, "Create an empty task database and exit")
	demo := flag.Bool("demo", false, "Create a database filled with sample tasks and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if *initDB {
		if err := db.Initialize(cfg.Database.Path); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Created database at %s\n", cfg.Database.Path)
		return
	}

	if *demo {
		if err := db.CreateFixturesDatabase(cfg.Database.Path); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Created demo database at %s\n", cfg.Database.Path)
		return
	}

	// Open database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	engine := timer.New(database, timer.WithLogger(log.Default()))

	// Create model
	model, err := tui.New(tasks.NewService(database), engine, cfg.UI)
	if err != nil {
		log.Fatal(err)
	}

	// The TUI owns the terminal from here on
	if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0755); err != nil {
		log.Fatalf("creating log directory: %v", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.Path, "tasks")
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	// Start the program
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}
