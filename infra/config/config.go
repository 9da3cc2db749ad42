// Package config loads engine settings from the environment. A .env
// file is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"matchbook/domain/num"
)

// Settings carries everything injected at construction time.
type Settings struct {
	RESTAddr   string
	StreamAddr string

	KafkaBrokers []string
	TradeTopic   string
	DepthTopic   string
	OutboxDir    string

	MinQuantity num.D
	MaxQuantity num.D
	MinPrice    num.D
	MaxPrice    num.D

	DefaultDepth int
	DecimalScale int32
	AssignIDs    bool

	LogLevel string
}

// Load reads settings from the environment, falling back to defaults.
func Load() (*Settings, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	s := &Settings{
		RESTAddr:   getEnv("REST_ADDR", ":8000"),
		StreamAddr: getEnv("STREAM_ADDR", ":8765"),
		TradeTopic: getEnv("TRADE_TOPIC", "trades"),
		DepthTopic: getEnv("DEPTH_TOPIC", "depth"),
		OutboxDir:  getEnv("OUTBOX_DIR", "data/outbox"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		s.KafkaBrokers = strings.Split(v, ",")
	}

	var err error
	if s.DefaultDepth, err = intEnv("DEFAULT_DEPTH", 10); err != nil {
		return nil, err
	}
	if s.DefaultDepth < 1 {
		return nil, fmt.Errorf("DEFAULT_DEPTH must be >= 1")
	}

	scale, err := intEnv("DECIMAL_SCALE", int(num.MinScale))
	if err != nil {
		return nil, err
	}
	if scale < int(num.MinScale) {
		return nil, fmt.Errorf("DECIMAL_SCALE must be >= %d", num.MinScale)
	}
	s.DecimalScale = int32(scale)

	if s.AssignIDs, err = boolEnv("ASSIGN_IDS", true); err != nil {
		return nil, err
	}

	if s.MinQuantity, err = decimalEnv("MIN_QUANTITY", "0.00000001", s.DecimalScale); err != nil {
		return nil, err
	}
	if s.MaxQuantity, err = decimalEnv("MAX_QUANTITY", "1000000", s.DecimalScale); err != nil {
		return nil, err
	}
	if s.MinPrice, err = decimalEnv("MIN_PRICE", "0.00000001", s.DecimalScale); err != nil {
		return nil, err
	}
	if s.MaxPrice, err = decimalEnv("MAX_PRICE", "10000000", s.DecimalScale); err != nil {
		return nil, err
	}

	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func decimalEnv(key, fallback string, scale int32) (num.D, error) {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := num.Parse(v, scale)
	if err != nil {
		return num.D{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
