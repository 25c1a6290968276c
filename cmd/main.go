package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climate_guard/internal/entities"
	"climate_guard/internal/guard"
	"climate_guard/internal/handlers"
	"climate_guard/internal/logger"
	"climate_guard/internal/repository"
	"climate_guard/internal/repository/db"
	"climate_guard/internal/server"
	"climate_guard/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first; the logger singleton takes its level from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(logLevel())

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// entity state store + MQTT feed
	store := entities.NewStore()
	conn, err := connectMQTT(store, log)
	if err != nil {
		log.Fatalw("failed to connect to mqtt broker", "err", err)
	}
	defer conn.Close()

	devices, err := deviceConfigs()
	if err != nil {
		log.Fatalw("invalid device configuration", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(database)
	services, err := service.NewService(repos, service.Deps{
		Clock:          guard.NewClock(),
		Bus:            conn,
		Store:          store,
		Log:            log,
		AuthSigningKey: viper.GetString("auth.signing_key"),
	}, devices)
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	defer services.Close()

	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// logLevel reads the configured log level, defaulting to info.
func logLevel() string {
	if level := viper.GetString("log.level"); level != "" {
		return level
	}
	return logger.InfoLevel
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "guard.db")
		dbPath = "guard.db"
	}
	return db.InitDB(dbPath)
}

// connectMQTT dials the broker and subscribes the store to entity state topics.
func connectMQTT(store *entities.Store, log *logger.Logger) (*entities.Conn, error) {
	broker := viper.GetString("mqtt.broker")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	clientID := viper.GetString("mqtt.client_id")
	if clientID == "" {
		clientID = "climate-guard"
	}
	prefix := viper.GetString("mqtt.topic_prefix")
	if prefix == "" {
		prefix = "home"
	}
	return entities.Connect(broker, clientID, prefix, store, log)
}

// deviceConfig mirrors the devices entries in config.yml. Durations are
// expressed in the units operators actually think in: minutes for the run
// and cooldown windows, seconds for the heartbeat.
type deviceConfig struct {
	ID               string   `mapstructure:"id"`
	Name             string   `mapstructure:"name"`
	Type             string   `mapstructure:"type"`
	TargetEntity     string   `mapstructure:"target_entity"`
	SunEntity        string   `mapstructure:"sun_entity"`
	WeatherEntity    string   `mapstructure:"weather_entity"`
	AllowedWeather   []string `mapstructure:"allowed_weather"`
	ClimateEntity    string   `mapstructure:"climate_entity"`
	RunLimitMinutes  *int     `mapstructure:"run_limit_minutes"`
	CooldownMinutes  *int     `mapstructure:"cooldown_minutes"`
	HeartbeatSeconds *int     `mapstructure:"heartbeat_seconds"`
}

// deviceConfigs parses the devices list from configuration.
func deviceConfigs() ([]guard.Config, error) {
	var raw []deviceConfig
	if err := viper.UnmarshalKey("devices", &raw); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no devices configured")
	}

	configs := make([]guard.Config, 0, len(raw))
	for _, d := range raw {
		cfg := guard.Config{
			DeviceID:       d.ID,
			Name:           d.Name,
			DeviceType:     d.Type,
			TargetEntity:   d.TargetEntity,
			SunEntity:      d.SunEntity,
			WeatherEntity:  d.WeatherEntity,
			AllowedWeather: d.AllowedWeather,
			ClimateEntity:  d.ClimateEntity,
			Limits: guard.Limits{
				RunLimit:  guard.DefaultRunLimit,
				Cooldown:  guard.DefaultCooldown,
				Heartbeat: guard.DefaultHeartbeat,
			},
		}
		if d.RunLimitMinutes != nil {
			cfg.Limits.RunLimit = time.Duration(*d.RunLimitMinutes) * time.Minute
		}
		if d.CooldownMinutes != nil {
			cfg.Limits.Cooldown = time.Duration(*d.CooldownMinutes) * time.Minute
		}
		if d.HeartbeatSeconds != nil {
			cfg.Limits.Heartbeat = time.Duration(*d.HeartbeatSeconds) * time.Second
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
