package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string `toml:"env"`

	Database  DatabaseConfigs `toml:"database"`
	ApiServer ServerConfigs   `toml:"api_server"`
	Redis     RedisConfigs    `toml:"redis"`
	Kafka     KafkaConfigs    `toml:"kafka"`
	Storage   S3Configs       `toml:"storage"`
	Draw      DrawConfigs     `toml:"draw"`
	Wheel     WheelConfigs    `toml:"wheel"`
	Log       LogConfigs      `toml:"log"`
}

type DatabaseConfigs struct {
	Driver   string `toml:"driver" validate:"oneof=mysql sqlite"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database" validate:"required"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	if d.Driver == "sqlite" {
		return d.Database
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host           string   `toml:"host"`
	Port           string   `toml:"port" validate:"required"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type RedisConfigs struct {
	Addr      string        `toml:"addr"`
	ConfigTTL time.Duration `toml:"config_ttl"`
}

type KafkaConfigs struct {
	Addrs    []string `toml:"addrs"`
	ClientID string   `toml:"client_id"`
	Topic    string   `toml:"topic"`
}

type S3Configs struct {
	Region      string `toml:"region"`
	Endpoint    string `toml:"endpoint"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	SSLDisabled bool   `toml:"ssl_disabled"`
	Bucket      string `toml:"bucket"`

	// LinkExpiry bounds how long an archive link stays valid.
	LinkExpiry time.Duration `toml:"link_expiry"`
}

type DrawConfigs struct {
	// Schedule is a standard five-field cron expression for the monthly
	// lifecycle job.
	Schedule   string `toml:"schedule" validate:"required"`
	Location   string `toml:"location"`
	AutoSelect bool   `toml:"auto_select"`
}

func (d DrawConfigs) TimeLocation() *time.Location {
	if d.Location == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(d.Location)
	if err != nil {
		return time.UTC
	}

	return loc
}

type WheelConfigs struct {
	SegmentCount int    `toml:"segment_count" validate:"gte=1"`
	SeedFile     string `toml:"seed_file"`
}

type LogConfigs struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}
