package protocol

import (
	"reflect"
	"testing"
)

func TestParseBasicCommands(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"PING", Command{Name: Ping}},
		{"  ping  ", Command{Name: Ping}},
		{"GET foo", Command{Name: Get, Args: []string{"foo"}}},
		{"DEL foo", Command{Name: Del, Args: []string{"foo"}}},
		{"EXPIRE foo 1000", Command{Name: Expire, Args: []string{"foo", "1000"}}},
		{"SET foo hello world", Command{Name: Set, Args: []string{"foo", "hello world"}}},
		{"set foo bar", Command{Name: Set, Args: []string{"foo", "bar"}}},
		{"STATS", Command{Name: Stats}},
		{"QUIT", Command{Name: Quit}},
		{"", Command{Name: Unknown}},
		{"   ", Command{Name: Unknown}},
		{"FROBNICATE a b", Command{Name: Unknown}},
	}

	for _, c := range cases {
		got := Parse(c.line)
		if got.Name != c.want.Name || !reflect.DeepEqual(normalize(got.Args), normalize(c.want.Args)) {
			t.Errorf("Parse(%q) = %+v; want %+v", c.line, got, c.want)
		}
	}
}

func normalize(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}

func TestParseSetPreservesInternalWhitespace(t *testing.T) {
	cmd := Parse("SET k  multi   word  value  ")
	if cmd.Name != Set {
		t.Fatalf("Name = %v; want Set", cmd.Name)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "k" {
		t.Fatalf("Args = %+v", cmd.Args)
	}
	if cmd.Args[1] != "multi   word  value" {
		t.Errorf("Args[1] = %q; want %q", cmd.Args[1], "multi   word  value")
	}
}
