package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pkg "git.solsynth.dev/hypernet/murmur/pkg/internal"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/cache"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/database"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/api"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/media"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" __  __\n|  \\/  |_   _ _ __ _ __ ___  _   _ _ __\n| |\\/| | | | | '__| '_ ` _ \\| | | | '__|\n| |  | | |_| | |  | | | | | | |_| | |\n|_|  |_|\\__,_|_|  |_| |_| |_|\\__,_|_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Hypernet.Murmur"), pkg.AppVersion)
	fmt.Printf("The social timeline service in Hypernet\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("murmur")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("bind_addr", "0.0.0.0:8444")
	viper.SetDefault("grpc_bind", "0.0.0.0:7444")
	viper.SetDefault("security.token_ttl", "360h")
	viper.SetDefault("security.auth_rate_limit", 20)
	viper.SetDefault("stories.sweep_schedule", "@every 60m")
	viper.SetDefault("language.detect", true)

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	if viper.GetBool("debug.enabled") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Load keypair
	tokens, err := exts.NewTokenKeeper(viper.GetString("security.jwt_secret"), viper.GetDuration("security.token_ttl"))
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when preparing the jwt secret.")
	}

	// Connect to database
	db, err := database.NewGorm(database.Config{
		DSN:    viper.GetString("database.dsn"),
		Prefix: viper.GetString("database.prefix"),
		Debug:  viper.GetBool("debug.database"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(db); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	cacheStore, err := cache.NewStore(cache.Config{
		NumCounters: viper.GetInt64("cache.num_counters"),
		MaxCost:     viper.GetInt64("cache.max_cost"),

		RedisAddr:     viper.GetString("cache.redis_addr"),
		RedisPassword: viper.GetString("cache.redis_password"),
		RedisDB:       viper.GetInt("cache.redis_db"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Configure media storage
	var mediaStore media.Store = media.Unconfigured{}
	if bucket := viper.GetString("media.bucket"); len(bucket) > 0 {
		s3Store, err := media.NewS3Store(context.Background(), media.S3Config{
			Bucket:        bucket,
			Region:        viper.GetString("media.region"),
			Endpoint:      viper.GetString("media.endpoint"),
			PublicBaseURL: viper.GetString("media.public_base_url"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("An error occurred when connecting to media storage.")
		}
		mediaStore = s3Store
		log.Info().Str("bucket", bucket).Msg("Media storage configured.")
	} else {
		log.Warn().Msg("No media bucket configured, media uploads will be rejected.")
	}

	var languages *services.LanguageDetector
	if viper.GetBool("language.detect") {
		languages = services.NewLanguageDetector()
	}

	accounts := services.NewAccountService(db, mediaStore, cacheStore)
	feeds := services.NewFeedService(db, mediaStore, accounts, languages)
	stories := services.NewStoryService(db, mediaStore)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc(viper.GetString("stories.sweep_schedule"), stories.SweepTimedTask); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the story sweep.")
	}
	quartz.Start()

	// Server
	server := http.NewServer(api.Deps{
		Accounts:      accounts,
		Graph:         services.NewGraphService(db),
		Feeds:         feeds,
		Engagement:    services.NewEngagementService(db, feeds),
		Stories:       stories,
		Notifications: services.NewNotificationService(db),
		Tokens:        tokens,
		AuthLimiter:   exts.NewRateLimiter(viper.GetInt("security.auth_rate_limit"), time.Minute, 5),
	})
	go server.Listen()

	grpcServer := grpc.NewGrpc()
	grpcServer.SetServing(true)
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Error().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-quartz.Stop().Done()
	grpcServer.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("An error occurred when shutting down server...")
	}
}
