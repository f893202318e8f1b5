package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBType string // file | memory | postgres
	DBPath string
	DBDSN  string

	HttpHostPort string
	GrpcHostPort string

	DefaultRate  float64
	DefaultBurst int

	JWTSecret  string
	SessionTTL time.Duration

	SuppressDuplicateAlerts bool

	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	MQTTBrokerURL string
	MQTTClientID  string
	MQTTEmbedded  bool
	MQTTListen    string

	SensorSource string // simulated | wifi
}

func lookup(key, fallback string) string {
	if v, found := os.LookupEnv(key); found && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// LoadConfig reads the process environment (after godotenv has populated it)
// and fills in defaults for everything optional.
func LoadConfig() (*Config, error) {
	var err error

	cfg := &Config{
		DBType:        lookup(EnvKeyRoomwatchDBType, "file"),
		DBPath:        lookup(EnvKeyRoomwatchDbPath, "roomwatch.db"),
		DBDSN:         lookup(EnvKeyRoomwatchDbDSN, ""),
		HttpHostPort:  lookup(EnvKeyRoomwatchHttpHostPort, ":1080"),
		GrpcHostPort:  lookup(EnvKeyRoomwatchGrpcHostPort, ""),
		JWTSecret:     lookup(EnvKeyRoomwatchJWTSecret, ""),
		RedisURL:      lookup(EnvKeyRoomwatchRedisURL, ""),
		KafkaTopic:    lookup(EnvKeyRoomwatchKafkaTopic, "roomwatch-changes"),
		MQTTBrokerURL: lookup(EnvKeyRoomwatchMQTTBrokerURL, ""),
		MQTTClientID:  lookup(EnvKeyRoomwatchMQTTClientID, "roomwatch-service"),
		MQTTListen:    lookup(EnvKeyRoomwatchMQTTListen, ":1883"),
		SensorSource:  lookup(EnvKeyRoomwatchSensorSource, "simulated"),
	}

	switch cfg.DBType {
	case "file", "memory":
	case "postgres":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("%s must be set when %s=postgres", EnvKeyRoomwatchDbDSN, EnvKeyRoomwatchDBType)
		}
	default:
		return nil, fmt.Errorf("unknown %s: %s", EnvKeyRoomwatchDBType, cfg.DBType)
	}

	if cfg.DefaultRate, err = strconv.ParseFloat(lookup(EnvKeyRoomwatchDefaultRate, "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyRoomwatchDefaultRate, err)
	}

	if cfg.DefaultBurst, err = strconv.Atoi(lookup(EnvKeyRoomwatchDefaultBurst, "20")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyRoomwatchDefaultBurst, err)
	}

	if cfg.SessionTTL, err = time.ParseDuration(lookup(EnvKeyRoomwatchSessionTTL, "24h")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a duration: %w", EnvKeyRoomwatchSessionTTL, err)
	}

	if cfg.SuppressDuplicateAlerts, err = strconv.ParseBool(lookup(EnvKeyRoomwatchSuppressDup, "true")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a bool: %w", EnvKeyRoomwatchSuppressDup, err)
	}

	if cfg.MQTTEmbedded, err = strconv.ParseBool(lookup(EnvKeyRoomwatchMQTTEmbedded, "false")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a bool: %w", EnvKeyRoomwatchMQTTEmbedded, err)
	}

	if brokers := lookup(EnvKeyRoomwatchKafkaBrokers, ""); brokers != "" {
		cfg.KafkaBrokers = Mapper(strings.Split(brokers, ","), strings.TrimSpace)
	}

	if cfg.JWTSecret == "" {
		if IsProduction() {
			return nil, fmt.Errorf("%s must be set in production", EnvKeyRoomwatchJWTSecret)
		}
		cfg.JWTSecret = "roomwatch-development-secret"
	}

	switch cfg.SensorSource {
	case "simulated", "wifi":
	default:
		return nil, fmt.Errorf("unknown %s: %s", EnvKeyRoomwatchSensorSource, cfg.SensorSource)
	}

	return cfg, nil
}
