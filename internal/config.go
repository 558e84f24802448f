package internal

import "time"

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	// MailboxSize bounds the per-account submission queue.
	MailboxSize int `env:"MAILBOX_SIZE,required=true"`

	// ProcessorIdleTimeout, when set, enables eviction of account
	// processors idle longer than this. Unset keeps every processor alive
	// for the life of the process.
	ProcessorIdleTimeout *time.Duration `env:"PROCESSOR_IDLE_TIMEOUT"`
	EvictionInterval     time.Duration  `env:"EVICTION_INTERVAL,required=true"`

	MetricInterval time.Duration `env:"METRIC_INTERVAL,required=true"`
	DebugPort      int           `env:"DEBUG_PORT,required=true"`
}
