// Command seed-taxonomy creates the default category groups and categories.
// Running it again only adds what is missing.
package main

import (
	"context"
	"os"
	"time"

	"budgeting/internal/cli"
	"budgeting/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentStorage)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, result)

	res, err := result.Backend.Taxonomy.SeedDefaults(ctx)
	if err != nil {
		logger.Error("Seeding taxonomy failed", "error", err)
		cli.CloseBackend(logger, result)
		os.Exit(1)
	}
	logger.Info("Taxonomy seeded",
		"groups_created", res.Groups,
		"categories_created", res.Categories,
		"backend", cfg.DataBackend)
}
