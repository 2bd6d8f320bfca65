package main

import (
	"context"
	goflag "flag"
	stdos "os"
	"time"

	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/ice"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/monitoring"
	"github.com/iceorch/iceorch/pkg/orchestrator"
	"github.com/iceorch/iceorch/pkg/os"
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
	conf := c.Orchestrator
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	conf.WithFlags(flag.CommandLine)
	flag.Parse()

	if conf.Console {
		log = logger.NewConsole(conf.Debug, "o", false)
	} else {
		log = logger.New(conf.Debug)
	}
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	if err := conf.Turn.Validate(); err != nil {
		log.Fatal().Err(err).Msg("turn")
	}
	if err := ice.ValidateHost(conf.Turn.Host); err != nil {
		log.Fatal().Err(err).Msg("turn")
	}

	lock, err := os.NewFileLock(conf.LockFile)
	if err != nil {
		log.Fatal().Err(err).Msg("lock")
	}
	if ok, err := lock.TryLock(); err != nil || !ok {
		log.Fatal().Err(err).Msg("another orchestrator is already running")
	}
	defer func() { _ = lock.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var secret ice.Secret = ice.StaticSecret(conf.Turn.Secret)
	if conf.Turn.SecretFile != "" {
		sf, err := ice.OpenSecretFile(conf.Turn.SecretFile, log)
		if err != nil {
			log.Fatal().Err(err).Msg("turn secret")
		}
		go func() {
			if err := sf.Watch(ctx); err != nil {
				log.Error().Err(err).Msg("turn secret watch")
			}
		}()
		secret = sf
	}

	services := service.NewGroup(log)
	services.Add(orchestrator.New(conf, secret, log))
	if conf.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Monitoring, "o", log)
		if err != nil {
			log.Fatal().Err(err).Msg("monitoring")
		}
		services.Add(mon)
	}
	services.Start()

	<-os.ExpectTermination()
	sctx, scancel := context.WithTimeout(ctx, 5*time.Second)
	defer scancel()
	if err := services.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
