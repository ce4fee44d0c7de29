package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=jar"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		Storage          Storage
		Jar              Jar
		Transport        Transport
	}

	Storage struct {
		DotPath string `env:"DOT_PATH,default=~/.swearjar"`
		DBFile  string `env:"DB_FILE,default=swearjar.db"`
	}

	Jar struct {
		WordsFile           string `env:"WORDS_FILE,default=bad-words.txt"`
		FineCents           int64  `env:"FINE_CENTS,default=20"`
		EscalationThreshold int    `env:"ESCALATION_THRESHOLD,default=5"`
		HistoryLimit        int    `env:"HISTORY_LIMIT,default=20"`
		Reaction            string `env:"REACTION,default=🙊"`
		EscalationImageURL  string `env:"ESCALATION_IMAGE_URL"`
	}

	Transport struct {
		PollTimeout time.Duration `env:"POLL_TIMEOUT,default=60s"`
		SendRate    float64       `env:"SEND_RATE,default=1"`
		SendBurst   int           `env:"SEND_BURST,default=3"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads SJ_-prefixed environment variables once per process.
func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadFrom builds a config from an arbitrary lookuper without touching the
// process-wide copy.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("SJ_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Storage.expand(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorageFrom reads only the ledger location, for commands that never
// talk to the chat platform.
func LoadStorageFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Storage, error) {
	storage := &Storage{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("SJ_", lookuper),
		Target:   storage,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := storage.expand(); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *Storage) expand() error {
	dotPath, err := homedir.Expand(s.DotPath)
	if err != nil {
		return fmt.Errorf("expand dot path: %w", err)
	}
	s.DotPath = dotPath
	return nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
