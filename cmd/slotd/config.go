package main

import (
	"flag"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hireloop/slotd/internal/api"
	"github.com/hireloop/slotd/internal/audit"
	"github.com/hireloop/slotd/internal/calfeed"
	"github.com/hireloop/slotd/internal/jobs"
	"github.com/hireloop/slotd/internal/notify"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/environment"
	"github.com/hireloop/slotd/pkg/errors"
)

type Config struct {
	Environment environment.Env `yaml:"Environment"`

	API   api.Config  `yaml:"API"`
	Mongo repo.Config `yaml:"Mongo"`
	Jobs  jobs.Config `yaml:"Jobs"`

	Audit struct {
		Kafka *audit.Config `yaml:"kafka"`
	} `yaml:"Audit"`

	Calendar struct {
		Google *calfeed.GoogleConfig `yaml:"google"`
		Feeds  []feedConfig          `yaml:"feeds"`
	} `yaml:"Calendar"`

	Notify struct {
		Email    *notify.EmailConfig    `yaml:"email"`
		Telegram *notify.TelegramConfig `yaml:"telegram"`
		Contacts notify.StaticContacts  `yaml:"contacts"`
	} `yaml:"Notify"`
}

type feedConfig struct {
	Provider   string `yaml:"provider"`
	TenantID   string `yaml:"tenant_id"`
	UserID     string `yaml:"user_id"`
	Token      string `yaml:"token"`
	CalendarID string `yaml:"calendar_id"`
}

func loadConfig() (*Config, error) {
	path, err := filepath.Abs("config.yaml")
	if err != nil {
		return nil, errors.WrapFail(err, "build path to config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFail(err, "read \"config.yaml\"")
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, errors.WrapFail(err, "parse yaml")
	}

	if envFromFlags := getEnvFromFlags(); envFromFlags != nil {
		cfg.Environment = *envFromFlags
	}

	return &cfg, nil
}

func getEnvFromFlags() *environment.Env {
	raw := flag.String("env", "", "environment (dev, prod)")
	flag.Parse()
	if raw == nil {
		return nil
	}

	env := environment.FromString(*raw)
	return &env
}
