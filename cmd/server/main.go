package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/innoval-tech/puntual-api/internal/app"
	"github.com/innoval-tech/puntual-api/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration file; APP__ and legacy variables override it")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

// run serves the API until SIGINT or SIGTERM.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	if err := a.Run(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
