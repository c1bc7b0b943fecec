package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/adapter"
	"github.com/justapithecus/contribuart/adapter/redis"
	"github.com/justapithecus/contribuart/adapter/webhook"
	"github.com/justapithecus/contribuart/cli/config"
	"github.com/justapithecus/contribuart/github"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/metrics"
)

// errTokenRequired is reported when no token is available from flags, the
// environment or the config file.
var errTokenRequired = errors.New("GitHub token required (--token, GITHUB_TOKEN or github.token)")

// journalFlags override the journal section of the config file.
func journalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "journal-backend",
			Usage: "Journal backend: fs or s3",
		},
		&cli.StringFlag{
			Name:  "journal-path",
			Usage: "Journal path (fs: directory, s3: bucket/prefix)",
		},
	}
}

// loadConfig reads the config file named by --config. A missing default
// file yields an empty config; a missing explicit file is an error.
// Journal flags, when present, override the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOptional(c.String("config"), c.IsSet("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("journal-backend"); v != "" {
		cfg.Journal.Backend = v
	}
	if v := c.String("journal-path"); v != "" {
		cfg.Journal.Path = v
		if cfg.Journal.Backend == "" {
			cfg.Journal.Backend = "fs"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tokenFrom returns --token (or GITHUB_TOKEN), falling back to the config.
func tokenFrom(c *cli.Context, cfg *config.Config) (string, error) {
	if t := c.String("token"); t != "" {
		return t, nil
	}
	if cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, nil
	}
	return "", errTokenRequired
}

func newGitHubClient(cfg *config.Config, token string) *github.Client {
	var opts []github.Option
	if cfg.GitHub.APIURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.APIURL))
	}
	return github.New(token, opts...)
}

func newCalendar(ctx context.Context, cfg *config.Config, token string) *github.Calendar {
	return github.NewCalendar(ctx, token, cfg.GitHub.GraphQLURL)
}

func s3Config(jc config.JournalConfig) lode.S3Config {
	bucket, prefix := lode.ParseS3Path(jc.Path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       jc.Region,
		Endpoint:     jc.Endpoint,
		UsePathStyle: jc.S3PathStyle,
	}
}

// openJournal builds the journal writer named by the config, instrumented
// with collector. Returns nil when no journal is configured.
func openJournal(ctx context.Context, jc config.JournalConfig, collector *metrics.Collector) (lode.Writer, error) {
	var (
		j   *lode.Journal
		err error
	)
	switch jc.Backend {
	case "":
		return nil, nil
	case "fs":
		j, err = lode.NewJournalFS(jc.Path)
	case "s3":
		j, err = lode.NewJournalS3(ctx, s3Config(jc))
	default:
		return nil, fmt.Errorf("unknown journal backend: %s (must be fs or s3)", jc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return lode.NewInstrumentedWriter(j, collector), nil
}

// openJournalDataset opens the configured journal for reads.
func openJournalDataset(ctx context.Context, jc config.JournalConfig) (lodelib.Dataset, error) {
	switch jc.Backend {
	case "fs":
		return lode.NewReadDatasetFS(jc.Path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, s3Config(jc))
	case "":
		return nil, errors.New("no journal configured (set journal in config or --journal-path)")
	default:
		return nil, fmt.Errorf("unknown journal backend: %s (must be fs or s3)", jc.Backend)
	}
}

// newNotifier builds the completion adapter named by the config. Returns
// nil when none is configured.
func newNotifier(ac config.AdapterConfig) (adapter.Adapter, error) {
	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		retries := redis.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return redis.New(redis.Config{
			URL:     ac.URL,
			Channel: ac.Channel,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", ac.Type)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
