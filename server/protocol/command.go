// Package protocol implements the line-oriented text command language the
// TCP server speaks: parsing a request line into a Command, and encoding a
// Response back onto the wire. It is grounded on the original server's
// CommandParser/Command/Response trio, expressed for the command set this
// repository's router exposes (SET/GET/DEL/EXPIRE/PING/STATS/QUIT).
package protocol

import "strings"

// Name identifies a command by its wire keyword.
type Name string

const (
	Set     Name = "SET"
	Get     Name = "GET"
	Del     Name = "DEL"
	Expire  Name = "EXPIRE"
	Ping    Name = "PING"
	Stats   Name = "STATS"
	Quit    Name = "QUIT"
	Unknown Name = "UNKNOWN"
)

// Command is a parsed request line: a name plus up to two arguments. The
// second argument (e.g. a SET value) may itself contain whitespace, since
// parsing splits on at most three fields total.
type Command struct {
	Name Name
	Args []string
}

// ArgCount returns len(c.Args).
func (c Command) ArgCount() int { return len(c.Args) }

var knownNames = map[string]Name{
	string(Set):    Set,
	string(Get):    Get,
	string(Del):    Del,
	string(Expire): Expire,
	string(Ping):   Ping,
	string(Stats):  Stats,
	string(Quit):   Quit,
}

// Parse splits a request line into a Command. An empty or whitespace-only
// line, or an unrecognized command word, parses to Unknown with no args.
func Parse(line string) Command {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{Name: Unknown}
	}

	parts := splitLimited(trimmed, 3)

	name, ok := knownNames[strings.ToUpper(parts[0])]
	if !ok {
		return Command{Name: Unknown}
	}

	return Command{Name: name, Args: parts[1:]}
}

// splitLimited splits line into at most n fields on runs of whitespace,
// stopping at n-1 leading tokens and leaving the remainder of the line
// (minus the separating whitespace) intact as the final field. This lets a
// SET value contain internal whitespace while EXPIRE's ttl argument is
// still read as a single token.
func splitLimited(line string, n int) []string {
	var fields []string
	s := line
	for i := 0; i < n-1; i++ {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return fields
		}
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			fields = append(fields, s)
			return fields
		}
		fields = append(fields, s[:idx])
		s = s[idx+1:]
	}
	s = strings.TrimLeft(s, " \t")
	if s != "" {
		fields = append(fields, s)
	}
	return fields
}
