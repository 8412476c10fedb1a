// Command regbot runs the graduation ceremony registration bot.
package main

import (
	"context"
	"log"
	"os"

	"github.com/m3rciful/regbot/app"
	"github.com/m3rciful/regbot/core/bootstrap"
	corecmd "github.com/m3rciful/regbot/core/cmd"
	coreconfig "github.com/m3rciful/regbot/core/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar: "CONFIG_PATH",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			bot, err := app.New(cfg, res.Store)
			if err != nil {
				_ = res.Store.Close()
				return nil, err
			}
			return bot, nil
		},
	})
	if err != nil {
		log.Printf("regbot: %v", err)
		os.Exit(corecmd.ExitCode(err))
	}
}
