package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Storage struct {
	// Gateways are tried in order; the first successful body wins.
	Gateways []string `yaml:"gateways"`
	// FetchTimeoutSeconds bounds each gateway attempt, not the whole fetch.
	FetchTimeoutSeconds int    `yaml:"fetchTimeoutSeconds"`
	PinEndpoint         string `yaml:"pinEndpoint"`
	PinToken            string `yaml:"pinToken"`
}

var DefaultGateways = []string{
	"gateway.pinata.cloud",
	"ipfs.io",
	"cloudflare-ipfs.com",
	"gateway.ipfs.io",
}

const defaultFetchTimeout = 15 * time.Second

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if len(config.Storage.Gateways) == 0 {
		config.Storage.Gateways = DefaultGateways
	}
	if config.Storage.FetchTimeoutSeconds <= 0 {
		config.Storage.FetchTimeoutSeconds = int(defaultFetchTimeout / time.Second)
	}
	if config.Storage.PinEndpoint == "" {
		return Config{}, fmt.Errorf("storage.pinEndpoint is required")
	}

	return config, nil
}

// FetchTimeout returns the per-attempt timeout as a duration.
func (s Storage) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSeconds) * time.Second
}
