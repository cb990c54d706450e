package main

import (
	"context"
	"os"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/shopsync/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		a, err := appkg.New(cfg, lg, m)
		if err != nil {
			return err
		}
		return appkg.Run(ctx, lg, a, os.Args[1:])
	})
}
