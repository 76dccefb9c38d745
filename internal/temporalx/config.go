package temporalx

import (
	"time"

	"github.com/yungbote/audience-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int
	DialTimeout           time.Duration
	DialMaxWait           time.Duration
	Concurrency           int
}

// Enabled reports whether a Temporal frontend is configured. Without one, jobs run on the
// in-process worker.
func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

// LoadConfig reads TEMPORAL_* variables.
func LoadConfig() Config {
	return Config{
		Address:               envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace:             envutil.String("TEMPORAL_NAMESPACE", "audience"),
		TaskQueue:             envutil.String("TEMPORAL_TASK_QUEUE", "audience"),
		ClientCertPath:        envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:         envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:          envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),
		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
		DialTimeout:           envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		DialMaxWait:           envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
		Concurrency:           envutil.Int("WORKER_CONCURRENCY", 4),
	}
}
