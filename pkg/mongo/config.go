package mongo

import "time"

// Config represents the configuration for the database connection.
type Config struct {
	ConnectionURL    string        `env:"MONGODB_URL,required"`                         // ConnectionURL is the URL of the database.
	Database         string        `env:"MONGODB_DATABASE" envDefault:"accounts"`       // Database is the database name.
	ConnectTimeout   time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`     // ConnectTimeout is the timeout for connecting to the database.
	OperationTimeout time.Duration `env:"MONGODB_OPERATION_TIMEOUT" envDefault:"5s"`    // OperationTimeout bounds individual database operations.
	MaxPoolSize      uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`       // MaxPoolSize is the maximum number of pooled connections.
	MinPoolSize      uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`         // MinPoolSize is the minimum number of pooled connections.
	MaxConnIdleTime  time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"` // MaxConnIdleTime is the maximum idle time of a pooled connection.
	RetryWrites      bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`       // RetryWrites specifies whether to retry write operations.
	RetryReads       bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`        // RetryReads specifies whether to retry read operations.
	RetryAttempts    int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`        // RetryAttempts is the number of connection attempts.
	RetryInterval    time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`       // RetryInterval is the interval between connection attempts.
}
