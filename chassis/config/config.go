package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	defaultRegion            = "eu-central-1"
	defaultEndpoint          = "http://localhost:4566"
	defaultQueueName         = "testqueue"
	defaultQueueType         = "sqs"
	defaultWaitSeconds       = 20
	defaultMaxMessages       = 10
	defaultVisibilityTimeout = 30
	defaultNamePrefix        = "Charles Bronson"
	defaultCount             = 4
	defaultMetricsAddr       = ":2112"
)

// AppConfig ...
type AppConfig struct {
	AWS struct {
		Region             string `yaml:"region"`
		Endpoint           string `yaml:"endpoint"`
		CredentialsFile    string `yaml:"credentialsFile"`
		CredentialsProfile string `yaml:"credentialsProfile"`
		// Local points the client at localstack, unset means local unless a credentials file is given.
		Local *bool `yaml:"local"`
	}
	Queue struct {
		Type              string   `yaml:"type"`
		Name              string   `yaml:"name"`
		Retries           int      `yaml:"retries"`
		WaitSeconds       int      `yaml:"waitSeconds"`
		MaxMessages       int      `yaml:"maxMessages"`
		VisibilityTimeout int      `yaml:"visibilityTimeout"`
		Precreate         []string `yaml:"precreate"`
	}
	Storage struct {
		DSN string `yaml:"dsn"`
	}
	Producer struct {
		Count            int     `yaml:"count"`
		NamePrefix       string  `yaml:"namePrefix"`
		BadPayloadChance float64 `yaml:"badPayloadChance"`
		LogLevel         string  `yaml:"loglevel"`
	}
	Consumer struct {
		Workers  int    `yaml:"workers"`
		Rounds   int    `yaml:"rounds"`
		LogLevel string `yaml:"loglevel"`
	}
	Metrics struct {
		Addr string `yaml:"addr"`
	}
}

// Read loads the config file pointed to by CFG_PATH.
func Read() (*AppConfig, error) {
	filename := os.Getenv("CFG_PATH")
	if filename == "" {
		return nil, errors.New("CFG_PATH is not set")
	}
	buff, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(buff)
}

// Parse decodes yaml and fills in defaults for anything left empty.
func Parse(buff []byte) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(buff, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (cfg *AppConfig) setDefaults() {
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = defaultRegion
	}
	if cfg.AWS.Local == nil {
		local := cfg.AWS.CredentialsFile == ""
		cfg.AWS.Local = &local
	}
	if cfg.AWS.Endpoint == "" && *cfg.AWS.Local {
		// only needed locally for the use with localstack
		cfg.AWS.Endpoint = defaultEndpoint
	}
	if cfg.Queue.Type == "" {
		cfg.Queue.Type = defaultQueueType
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = defaultQueueName
	}
	if cfg.Queue.Type == "memory" && len(cfg.Queue.Precreate) == 0 {
		cfg.Queue.Precreate = []string{cfg.Queue.Name}
	}
	if cfg.Queue.WaitSeconds == 0 {
		cfg.Queue.WaitSeconds = defaultWaitSeconds
	}
	if cfg.Queue.MaxMessages == 0 {
		cfg.Queue.MaxMessages = defaultMaxMessages
	}
	if cfg.Queue.VisibilityTimeout == 0 {
		cfg.Queue.VisibilityTimeout = defaultVisibilityTimeout
	}
	if cfg.Producer.Count == 0 {
		cfg.Producer.Count = defaultCount
	}
	if cfg.Producer.NamePrefix == "" {
		cfg.Producer.NamePrefix = defaultNamePrefix
	}
	if cfg.Consumer.Workers == 0 {
		cfg.Consumer.Workers = 1
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = defaultMetricsAddr
	}
}
