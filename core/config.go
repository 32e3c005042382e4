package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Ledger       LedgerConfig
		Client       ClientConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// LedgerConfig selects where rosters and marks are stored.
	LedgerConfig struct {
		Store     string // database | mongodb
		MongoURL  string
		MongoName string
	}

	// ClientConfig configures the marksheet client.
	ClientConfig struct {
		BaseURL      string
		Token        string
		Timeout      time.Duration
		Workers      int
		DefaultTotal float64
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Alama")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "kq9-3hd(bn$+57=xm&uoa1(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "alama")
	conf.SetDefault("dbUser", "alama")
	conf.SetDefault("dbPassword", "alama")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "postgres")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("ledgerStore", "database")
	conf.SetDefault("ledgerMongoURL", "mongodb://localhost:27017")
	conf.SetDefault("ledgerMongoName", "alama")

	conf.SetDefault("clientBaseURL", "http://localhost:8000")
	conf.SetDefault("clientToken", "")
	conf.SetDefault("clientTimeout", 15*time.Second)
	conf.SetDefault("clientWorkers", 8)
	conf.SetDefault("clientDefaultTotal", 100.0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("dbEngine", "memory")
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Address:                   conf.GetString("serverAddress"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Ledger: LedgerConfig{
			Store:     conf.GetString("ledgerStore"),
			MongoURL:  conf.GetString("ledgerMongoURL"),
			MongoName: conf.GetString("ledgerMongoName"),
		},
		Client: ClientConfig{
			BaseURL:      conf.GetString("clientBaseURL"),
			Token:        conf.GetString("clientToken"),
			Timeout:      conf.GetDuration("clientTimeout"),
			Workers:      conf.GetInt("clientWorkers"),
			DefaultTotal: conf.GetFloat64("clientDefaultTotal"),
		},
	}
}
