// cmd/migrate applies the embedded SQL migrations; run with -direction down
// to roll back.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Facelessism/Pixel-Phantoms/internal/config"
	"github.com/Facelessism/Pixel-Phantoms/internal/database/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DB.URL(), *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Already at target version; success.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
