// Package serve implements the "ember serve" command: it boots the store
// router, the optional background sweeper and periodic snapshot manager,
// the text-protocol TCP server, and the metrics/health HTTP server, then
// blocks until interrupted. Grounded on the teacher's cmd/serve/root.go
// config-loading and graceful-shutdown shape.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emberkv/ember/cmd/util"
	"github.com/emberkv/ember/lib/common"
	"github.com/emberkv/ember/lib/store"
	"github.com/emberkv/ember/lib/sweep"
	"github.com/emberkv/ember/server/metricsapi"
	"github.com/emberkv/ember/server/tcp"

	"github.com/emberkv/ember/lib/snapshot"
)

var serveCmdConfig = &common.ServerConfig{}

// ServeCmd is the "serve" command.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the ember server",
	Long: `Start the ember key-value server with the specified configuration. The
configuration can be set via command line flags or environment variables.
Environment variables are named EMBER_<flag> (e.g. EMBER_ENDPOINT=0.0.0.0:7777).`,
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	cobra.OnInitialize(initConfig)

	key := "shard-count"
	ServeCmd.PersistentFlags().Int(key, 16, util.WrapString("number of shards; must be a positive power of two"))

	key = "capacity-per-shard"
	ServeCmd.PersistentFlags().Int(key, 10_000, util.WrapString("maximum number of live entries per shard"))

	key = "max-key-bytes"
	ServeCmd.PersistentFlags().Int64(key, 1024, util.WrapString("maximum key size in bytes (-1 for unbounded)"))

	key = "max-value-bytes"
	ServeCmd.PersistentFlags().Int64(key, 1<<20, util.WrapString("maximum value size in bytes (-1 for unbounded)"))

	key = "snapshot-dir"
	ServeCmd.PersistentFlags().String(key, "data/snapshots", util.WrapString("directory holding snapshot files"))

	key = "snapshot-interval"
	ServeCmd.PersistentFlags().Int(key, 300, util.WrapString("seconds between periodic snapshots (0 disables)"))

	key = "retain-snapshots"
	ServeCmd.PersistentFlags().Int(key, 5, util.WrapString("number of most recent snapshot files to keep after each periodic snapshot (0 keeps all)"))

	key = "sweep-interval-ms"
	ServeCmd.PersistentFlags().Int64(key, 1000, util.WrapString("milliseconds between background TTL sweeps (0 disables)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:7777", util.WrapString("the address the text-protocol server listens on"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9090", util.WrapString("the address the /metrics and /healthz endpoints listen on"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, util.WrapString("per-request read/write timeout in seconds (0 disables)"))

	key = "max-workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 64, util.WrapString("maximum number of in-flight requests per connection"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", util.WrapString("log level: debug, info, warn, error"))
}

// processConfig reads configuration from flags and environment variables
// into serveCmdConfig.
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.ShardCount = viper.GetInt("shard-count")
	serveCmdConfig.CapacityPerShard = viper.GetInt("capacity-per-shard")
	serveCmdConfig.MaxKeyBytes = viper.GetInt64("max-key-bytes")
	serveCmdConfig.MaxValueBytes = viper.GetInt64("max-value-bytes")
	serveCmdConfig.SnapshotDir = viper.GetString("snapshot-dir")
	serveCmdConfig.SnapshotIntervalSeconds = viper.GetInt("snapshot-interval")
	serveCmdConfig.RetainSnapshots = viper.GetInt("retain-snapshots")
	serveCmdConfig.SweepIntervalMillis = viper.GetInt64("sweep-interval-ms")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("max-workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.ShardCount <= 0 || serveCmdConfig.ShardCount&(serveCmdConfig.ShardCount-1) != 0 {
		return fmt.Errorf("shard-count must be a positive power of two, got %d", serveCmdConfig.ShardCount)
	}

	return nil
}

// run boots the router, background tasks, and servers, and blocks until an
// interrupt or terminate signal is received.
func run(_ *cobra.Command, _ []string) error {
	logger := common.NewLogger("ember", common.ParseLogLevel(serveCmdConfig.LogLevel))
	logger.Infof("starting ember server\n%s", serveCmdConfig.String())

	router, err := store.NewRouter(store.Config{
		ShardCount:       serveCmdConfig.ShardCount,
		CapacityPerShard: serveCmdConfig.CapacityPerShard,
		MaxKeyBytes:      serveCmdConfig.MaxKeyBytes,
		MaxValueBytes:    serveCmdConfig.MaxValueBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	snapMgr, err := snapshot.NewManager(serveCmdConfig.SnapshotDir, func(format string, args ...interface{}) {
		logger.Errorf(format, args...)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize snapshot manager: %w", err)
	}

	if loaded, err := snapMgr.LoadLatestSnapshot(router); err != nil {
		logger.Warningf("failed to load latest snapshot: %v", err)
	} else if loaded {
		logger.Infof("restored store state from latest snapshot")
	}

	if serveCmdConfig.SnapshotIntervalSeconds > 0 {
		if err := snapMgr.StartPeriodic(router, serveCmdConfig.SnapshotIntervalSeconds, serveCmdConfig.RetainSnapshots); err != nil {
			return fmt.Errorf("failed to start periodic snapshots: %w", err)
		}
		defer func() { _ = snapMgr.StopPeriodic() }()
	}

	var sweeper *sweep.Sweeper
	if serveCmdConfig.SweepIntervalMillis > 0 {
		sweeper = sweep.New(router)
		if err := sweeper.Start(serveCmdConfig.SweepIntervalMillis); err != nil {
			return fmt.Errorf("failed to start background sweeper: %w", err)
		}
		defer func() { _ = sweeper.Stop() }()
	}

	handler := tcp.NewHandler(router, snapMgr)
	tcpServer, err := tcp.New(tcp.Config{
		Endpoint:          serveCmdConfig.Endpoint,
		TimeoutSecond:     serveCmdConfig.TimeoutSecond,
		MaxWorkersPerConn: serveCmdConfig.MaxWorkersPerConn,
	}, handler, logger)
	if err != nil {
		return fmt.Errorf("failed to start tcp server: %w", err)
	}
	defer func() { _ = tcpServer.Close() }()

	metricsServer := metricsapi.New(serveCmdConfig.MetricsEndpoint, router, logger)

	go func() {
		if err := tcpServer.Serve(); err != nil {
			logger.Errorf("tcp server stopped: %v", err)
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil {
			logger.Debugf("metrics server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Infof("shutting down")

	if _, err := snapMgr.SaveSnapshot(router); err != nil {
		logger.Errorf("final snapshot save failed: %v", err)
	}

	return nil
}

// initConfig reads in .env files and sets up the EMBER_ environment prefix.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("ember")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
