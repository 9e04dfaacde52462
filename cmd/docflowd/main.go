// Command docflowd runs the document-ingestion daemon in the foreground.
// It is meant for service managers; interactive use goes through `docflow`.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"docflow/internal/config"
	"docflow/internal/daemonrun"
)

// configEnv names an optional configuration file path.
const configEnv = "DOCFLOW_CONFIG"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("docflowd: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(os.Getenv(configEnv)))
	return cfg, err
}
