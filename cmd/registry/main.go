package main

import (
	"context"
	goflag "flag"
	stdos "os"
	"time"

	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/monitoring"
	"github.com/iceorch/iceorch/pkg/os"
	"github.com/iceorch/iceorch/pkg/registry"
	"github.com/iceorch/iceorch/pkg/service"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	log := logger.Default()

	c, err := config.NewConfig(stdos.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	conf := c.Registry
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	conf.WithFlags(flag.CommandLine)
	flag.Parse()

	if conf.Console {
		log = logger.NewConsole(conf.Debug, "r", false)
	} else {
		log = logger.New(conf.Debug)
	}
	log.Info().Msgf("version %s", Version)

	reg, err := registry.New(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("registry")
	}
	services := service.NewGroup(log)
	services.Add(reg)
	if conf.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Monitoring, "r", log)
		if err != nil {
			log.Fatal().Err(err).Msg("monitoring")
		}
		services.Add(mon)
	}
	services.Start()

	<-os.ExpectTermination()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
