package environment

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/campuscode/sessiond/internal/xdg"
)

type EnvConfig struct {
	NatsUrl        string
	NatsCmdSubject string

	SqsResultsUrl string
	AwsRegion     string

	SeedDir  string
	StateDir string

	WarnLimit int
	TickEvery time.Duration
}

func ReadEnvConfig() *EnvConfig {
	// a missing .env file is fine; plain env vars still apply
	_ = godotenv.Load()

	result := &EnvConfig{
		NatsUrl:        getenv("NATS_URL", "nats://localhost:4222"),
		NatsCmdSubject: getenv("NATS_CMD_SUBJECT", "sessiond.cmd"),
		SqsResultsUrl:  os.Getenv("SQS_RESULTS_URL"),
		AwsRegion:      getenv("AWS_REGION", "eu-central-1"),
		SeedDir:        getenv("SEED_DIR", "seeds"),
		StateDir:       getenv("STATE_DIR", xdg.StateHome("sessiond")),
		WarnLimit:      3,
		TickEvery:      time.Second,
	}

	if v := os.Getenv("WARN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			result.WarnLimit = n
		}
	}
	if v := os.Getenv("TICK_MILLIS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			result.TickEvery = time.Duration(n) * time.Millisecond
		}
	}

	return result
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
