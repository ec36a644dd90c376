package broker

import (
	"fmt"
	"time"

	"github.com/marmos91/fsbroker/internal/bytesize"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/bufpool"
)

// TimeoutsConfig groups the per-connection timeouts.
type TimeoutsConfig struct {
	// Read bounds how long reading one complete frame may take once its
	// first byte has arrived. 0 disables it.
	Read time.Duration `mapstructure:"read" yaml:"read" validate:"min=0"`

	// Write bounds a single response write. A response that misses it is
	// dropped and counted as a send failure.
	Write time.Duration `mapstructure:"write" yaml:"write" validate:"min=0"`

	// Idle closes connections that send nothing for this long.
	Idle time.Duration `mapstructure:"idle" yaml:"idle" validate:"min=0"`

	// Shutdown is how long Serve waits for connections to drain before
	// force-closing them.
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown" validate:"min=0"`
}

// Config is the broker listener configuration.
//
// Defaults (applied to zero values):
//   - Port: 9400
//   - MaxRequestsPerConnection: 64
//   - MaxFrameSize: 16MiB
//   - MaxIOSize: 4MiB, lowered so a full Read response fits in MaxFrameSize
//   - Timeouts.Read: 5m, Timeouts.Write: 30s, Timeouts.Idle: 5m
//   - Timeouts.Shutdown: 30s
type Config struct {
	// BindAddress is the IP to listen on. Empty binds all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port. Use -1 in tests for an ephemeral port.
	Port int `mapstructure:"port" yaml:"port" validate:"min=-1,max=65535"`

	// MaxConnections limits concurrent client connections. 0 is unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// MaxRequestsPerConnection bounds the requests one connection may have
	// in flight. Reading stops while the limit is reached.
	MaxRequestsPerConnection int `mapstructure:"max_requests_per_connection" yaml:"max_requests_per_connection" validate:"min=0"`

	// MaxFrameSize bounds the envelope TotalLen of inbound frames.
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" yaml:"max_frame_size"`

	// MaxIOSize caps the amount of a single Read, Pread or Write. A Read
	// request is a few bytes regardless of its amount, so this is what
	// bounds the buffer the broker allocates for it.
	MaxIOSize bytesize.ByteSize `mapstructure:"max_io_size" yaml:"max_io_size"`

	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`

	// MetricsLogInterval logs connection counts periodically. 0 disables.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// DefaultPort is the broker's default TCP port.
const DefaultPort = 9400

// DefaultMaxIOSize is the largest buffer size bufpool recycles.
const DefaultMaxIOSize = bytesize.ByteSize(bufpool.MaxSize)

// responseOverhead is the envelope plus fixed fields of a Read response.
const responseOverhead = wire.HeaderSize + 4 + 2 + 4 + 8 + 4

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRequestsPerConnection == 0 {
		c.MaxRequestsPerConnection = 64
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = 16 * bytesize.MiB
	}
	if c.MaxIOSize == 0 {
		c.MaxIOSize = DefaultMaxIOSize
		if limit := c.MaxFrameSize - responseOverhead; c.MaxFrameSize > responseOverhead && limit < c.MaxIOSize {
			c.MaxIOSize = limit
		}
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = 5 * time.Minute
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = 30 * time.Second
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = 5 * time.Minute
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 30 * time.Second
	}
}

// Validate checks a configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Port < -1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d: must be >= 0", c.MaxConnections)
	}
	if c.MaxRequestsPerConnection < 0 {
		return fmt.Errorf("invalid max_requests_per_connection %d: must be >= 0", c.MaxRequestsPerConnection)
	}
	if c.MaxFrameSize > 1<<31-1 {
		return fmt.Errorf("invalid max_frame_size %s: must fit in 31 bits", c.MaxFrameSize)
	}
	if c.MaxIOSize > c.MaxFrameSize {
		return fmt.Errorf("max_io_size %s exceeds max_frame_size %s", c.MaxIOSize, c.MaxFrameSize)
	}
	if c.Timeouts.Read < 0 || c.Timeouts.Write < 0 || c.Timeouts.Idle < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("invalid timeouts.shutdown %v: must be > 0", c.Timeouts.Shutdown)
	}
	return nil
}

func (c *Config) listenAddr() string {
	port := c.Port
	if port < 0 {
		port = 0
	}
	return fmt.Sprintf("%s:%d", c.BindAddress, port)
}
