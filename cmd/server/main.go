package main

import (
	"context"
	"flag"
	"log"

	"github.com/simp-lee/itemhub/internal/app"
	"github.com/simp-lee/itemhub/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	if *migrateOnly {
		if err := app.Migrate(context.Background(), cfg); err != nil {
			log.Fatal("migration failed: ", err)
		}
		return
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
