// Package kv implements the "ember kv" command group: a thin CLI client
// speaking the text protocol over a single TCP connection per invocation,
// grounded on the teacher's cmd/kv client-setup shape but talking
// server/tcp.Client instead of an RPC stub.
package kv

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/emberkv/ember/cmd/util"
	"github.com/emberkv/ember/server/tcp"
)

// KeyValueCommands is the "kv" command group.
var KeyValueCommands = &cobra.Command{
	Use:   "kv",
	Short: "Perform key-value store operations against a running ember server",
}

func init() {
	cobra.OnInitialize(util.InitClientConfig)
	util.SetupClientFlags(KeyValueCommands)

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(expireCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(statsCmd)
	KeyValueCommands.AddCommand(perfCmd)
}

// dial opens a single connection to the server using the flags bound on
// cmd, closing over util.BindCommandFlags/GetClientConfig the same way the
// teacher's setupKVClient did for its RPC stub.
func dial(cmd *cobra.Command) (*tcp.Client, error) {
	if err := util.BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	cfg := util.GetClientConfig()
	return tcp.Dial(cfg.Endpoint, time.Duration(cfg.TimeoutSecond)*time.Second)
}
