package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ServerConfig holds every parameter needed to boot the text-protocol
// server, its metrics endpoint, and the snapshot/sweep background tasks.
type ServerConfig struct {
	// Store shape
	ShardCount       int
	CapacityPerShard int
	MaxKeyBytes      int64 // -1 = unbounded
	MaxValueBytes    int64 // -1 = unbounded

	// Snapshots
	SnapshotDir             string
	SnapshotIntervalSeconds int // 0 disables periodic snapshots
	RetainSnapshots         int

	// Background sweep
	SweepIntervalMillis int64 // 0 disables the background sweeper

	// Networking
	Endpoint         string // TCP text-protocol listen address
	MetricsEndpoint  string // HTTP metrics/health listen address
	TimeoutSecond    int64
	MaxWorkersPerConn int

	LogLevel string
}

// String renders the configuration for the server startup banner, in the
// same addSection/addField shape the teacher uses for its own config dump.
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("Shard Count", strconv.Itoa(c.ShardCount))
	addField("Capacity Per Shard", strconv.Itoa(c.CapacityPerShard))
	addField("Max Key Bytes", formatLimit(c.MaxKeyBytes))
	addField("Max Value Bytes", formatLimit(c.MaxValueBytes))

	addSection("Snapshots")
	addField("Directory", c.SnapshotDir)
	addField("Interval", fmt.Sprintf("%d sec", c.SnapshotIntervalSeconds))
	addField("Retain", strconv.Itoa(c.RetainSnapshots))

	addSection("Background Sweep")
	addField("Interval", fmt.Sprintf("%d ms", c.SweepIntervalMillis))

	addSection("Networking")
	addField("Endpoint", c.Endpoint)
	addField("Metrics Endpoint", c.MetricsEndpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func formatLimit(v int64) string {
	if v < 0 {
		return "unbounded"
	}
	return strconv.FormatInt(v, 10)
}

// ClientConfig holds the connection parameters used by the CLI's kv client.
type ClientConfig struct {
	Endpoint      string
	TimeoutSecond int
}

func (c *ClientConfig) String() string {
	return fmt.Sprintf("endpoint=%s timeout=%ds", c.Endpoint, c.TimeoutSecond)
}
