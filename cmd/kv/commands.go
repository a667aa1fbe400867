package kv

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Sets the value for a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command(fmt.Sprintf("SET %s %s", args[0], args[1]))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Reads the value for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command(fmt.Sprintf("GET %s", args[0]))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del [key]",
	Short: "Deletes a key, reporting 1 if it was present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command(fmt.Sprintf("DEL %s", args[0]))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire [key] [ttlMillis]",
	Short: "Stamps an absolute expiration ttlMillis from now on a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command(fmt.Sprintf("EXPIRE %s %s", args[0], args[1]))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Pings the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command("PING")
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the server's counters, size, and capacity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		reply, err := c.Command("STATS")
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}
