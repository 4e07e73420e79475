package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

func Default() Configs {
	return Configs{
		Env: "local",
		Database: DatabaseConfigs{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     "3306",
			Database: "luckydraw",
			User:     "root",
		},
		ApiServer: ServerConfigs{Port: "8080"},
		Redis:     RedisConfigs{ConfigTTL: 30 * time.Second},
		Kafka:     KafkaConfigs{ClientID: "luckydraw", Topic: "lottery.draw"},
		Draw:      DrawConfigs{Schedule: "5 0 1 * *"},
		Wheel:     WheelConfigs{SegmentCount: 8},
		Log:       LogConfigs{Level: "info"},
	}
}

// Load reads .env (if present), then the TOML file at path (if not empty), then
// environment overrides, and validates the result.
func Load(path string) (Configs, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Configs{}, err
	}

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, err
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Configs{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Configs) {
	setString(&cfg.Env, "ENV")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.ApiServer.Host, "API_HOST")
	setString(&cfg.ApiServer.Port, "API_PORT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Draw.Schedule, "DRAW_SCHEDULE")
	setString(&cfg.Draw.Location, "DRAW_LOCATION")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("KAFKA_ADDRS"); v != "" {
		cfg.Kafka.Addrs = strings.Split(v, ",")
	}

	if v := os.Getenv("DRAW_AUTO_SELECT"); v != "" {
		cfg.Draw.AutoSelect = v == "true" || v == "1"
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
