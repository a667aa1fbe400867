package kv

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberkv/ember/cmd/util"
	"github.com/emberkv/ember/server/tcp"
)

// perfCmd is a small concurrent load generator against a running server,
// grounded on the teacher's cmd/kv perf command but driving the text
// protocol through server/tcp.Client instead of an RPC stub, and trimmed to
// three of the store's operations (set/get/del).
var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Runs a short concurrent load test against a running ember server",
	Args:  cobra.NoArgs,
	RunE:  runPerf,
}

var (
	perfThreads    int
	perfKeySpread  int
	perfValueBytes int
	perfDuration   time.Duration
)

func init() {
	perfCmd.Flags().IntVar(&perfThreads, "threads", 10, "number of concurrent client connections")
	perfCmd.Flags().IntVar(&perfKeySpread, "keys", 1000, "number of distinct keys to cycle through")
	perfCmd.Flags().IntVar(&perfValueBytes, "value-bytes", 64, "size in bytes of each generated value")
	perfCmd.Flags().DurationVar(&perfDuration, "duration", 5*time.Second, "how long to run each benchmark phase")
}

type perfResult struct {
	name string
	ops  int64
	dur  time.Duration
}

func (r perfResult) String() string {
	return fmt.Sprintf("%-6s %8d ops in %7s (%.0f ops/sec)", r.name, r.ops, r.dur.Round(time.Millisecond), float64(r.ops)/r.dur.Seconds())
}

func runPerf(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	cfg := util.GetClientConfig()
	value := strings.Repeat("x", perfValueBytes)

	fmt.Printf("perf: endpoint=%s threads=%d keys=%d value_bytes=%d duration=%s\n\n",
		cfg.Endpoint, perfThreads, perfKeySpread, perfValueBytes, perfDuration)

	setResult, err := runPerfPhase("SET", cmd, func(id int, tick int64) string {
		return fmt.Sprintf("SET perf:%d %s", tick%int64(perfKeySpread), value)
	})
	if err != nil {
		return err
	}
	fmt.Println(setResult)

	getResult, err := runPerfPhase("GET", cmd, func(id int, tick int64) string {
		return fmt.Sprintf("GET perf:%d", tick%int64(perfKeySpread))
	})
	if err != nil {
		return err
	}
	fmt.Println(getResult)

	delResult, err := runPerfPhase("DEL", cmd, func(id int, tick int64) string {
		return fmt.Sprintf("DEL perf:%d", tick%int64(perfKeySpread))
	})
	if err != nil {
		return err
	}
	fmt.Println(delResult)

	return nil
}

// runPerfPhase opens perfThreads connections and hammers genLine against the
// server for perfDuration, summing the total operation count across all of
// them.
func runPerfPhase(name string, cmd *cobra.Command, genLine func(id int, tick int64) string) (perfResult, error) {
	clients := make([]*tcp.Client, 0, perfThreads)
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	for i := 0; i < perfThreads; i++ {
		c, err := dial(cmd)
		if err != nil {
			return perfResult{}, err
		}
		clients = append(clients, c)
	}

	var ops atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	deadline := start.Add(perfDuration)

	for i, c := range clients {
		wg.Add(1)
		go func(id int, c *tcp.Client) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(id) + 1))
			var tick int64
			for time.Now().Before(deadline) {
				line := genLine(id, tick+rnd.Int63n(int64(perfKeySpread)+1))
				if _, err := c.Command(line); err != nil {
					return
				}
				ops.Add(1)
				tick++
			}
		}(i, c)
	}
	wg.Wait()

	return perfResult{name: name, ops: ops.Load(), dur: time.Since(start)}, nil
}
