package protocol

import (
	"bytes"
	"strconv"
	"strings"
)

type responseKind int

const (
	kindSimpleString responseKind = iota
	kindError
	kindInteger
	kindBulkString
	kindNullBulkString
	kindMultiLine
)

const crlf = "\r\n"

// Response is a single reply on the wire, in a Redis-like dialect: simple
// strings, errors, integers, bulk strings
// (length-prefixed, binary safe), a null bulk string for "absent", and a
// count-prefixed multi-line block for STATS.
type Response struct {
	kind    responseKind
	str     string
	value   []byte
	integer int64
}

// OK is the simple-string reply for a successful SET.
func OK() Response { return Response{kind: kindSimpleString, str: "OK"} }

// SimpleString builds a simple-string reply with a custom message.
func SimpleString(message string) Response {
	return Response{kind: kindSimpleString, str: message}
}

// Err builds an error reply. message must not leak internal detail such as
// stack traces; callers map store errors to a single user-facing line.
func Err(message string) Response {
	return Response{kind: kindError, str: message}
}

// Integer builds an integer reply (DEL/EXPIRE's 1-or-0, etc).
func Integer(value int64) Response {
	return Response{kind: kindInteger, integer: value}
}

// Bulk builds a bulk-string reply carrying an opaque value.
func Bulk(value []byte) Response {
	return Response{kind: kindBulkString, value: value}
}

// NullBulk is the reply for GET on an absent key.
func NullBulk() Response {
	return Response{kind: kindNullBulkString}
}

// MultiLine builds the STATS reply out of individual lines. Unlike a bulk
// string it has no single length prefix; instead the first wire line is a
// "#N" count so a reader knows exactly how many of the following lines
// belong to this reply.
func MultiLine(lines []string) Response {
	return Response{kind: kindMultiLine, str: strings.Join(lines, "\x00")}
}

// Encode renders the response to its wire bytes.
func (r Response) Encode() []byte {
	var buf bytes.Buffer
	switch r.kind {
	case kindSimpleString:
		buf.WriteByte('+')
		buf.WriteString(r.str)
		buf.WriteString(crlf)
	case kindError:
		buf.WriteString("-ERR ")
		buf.WriteString(r.str)
		buf.WriteString(crlf)
	case kindInteger:
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(r.integer, 10))
		buf.WriteString(crlf)
	case kindBulkString:
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(r.value)))
		buf.WriteString(crlf)
		buf.Write(r.value)
		buf.WriteString(crlf)
	case kindNullBulkString:
		buf.WriteString("$-1")
		buf.WriteString(crlf)
	case kindMultiLine:
		lines := strings.Split(r.str, "\x00")
		buf.WriteByte('#')
		buf.WriteString(strconv.Itoa(len(lines)))
		buf.WriteString(crlf)
		for _, line := range lines {
			buf.WriteString(line)
			buf.WriteString(crlf)
		}
	default:
		buf.WriteString("-ERR unknown response type")
		buf.WriteString(crlf)
	}
	return buf.Bytes()
}
