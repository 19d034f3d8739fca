package podcache

import (
	"bytes"
	"strconv"

	"github.com/facebookgo/stackerr"
)

const (
	// maxArgs bounds the number of elements in a request array. A real
	// command never has more than a handful; 100 is generous headroom,
	// not a command's natural arity.
	maxArgs = 100
	// maxBulkLen bounds a single bulk string's declared length.
	maxBulkLen = 1 << 20 // 1 MiB
	// maxCommandSize bounds how large the unparsed accumulator is
	// allowed to grow while waiting for a command to complete; past
	// this, whatever is being sent is not a well-formed command.
	maxCommandSize = maxArgs*(len("$")+20+len("\r\n")+maxBulkLen+len("\r\n")) + 64
)

// errNeedMore signals that buf does not yet contain a complete command;
// the caller should wait for more bytes and retry with the same buf.
var errNeedMore = stackerr.New("podcache: need more data")

// ErrProtocol is returned for any malformed input: missing sigils,
// non-numeric lengths, a length out of bounds, or a missing trailing
// CRLF. The caller always responds by emitting "-ERR protocol error" and
// closing the connection.
var ErrProtocol = stackerr.New("podcache: protocol error")

// parseCommand attempts to decode one RESP array of bulk strings from the
// front of buf. On success it returns the decoded argument list and the
// number of bytes consumed. If buf holds an incomplete command it returns
// errNeedMore and the caller should not advance its accumulator. Any
// other error is ErrProtocol and the connection must be closed.
func parseCommand(buf []byte) (args [][]byte, consumed int, err error) {
	pos := 0

	line, n, err := readLine(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, 0, ErrProtocol
	}
	numArgs, err := parseInt(line[1:])
	if err != nil || numArgs < 1 || numArgs > maxArgs {
		return nil, 0, ErrProtocol
	}
	pos += n

	out := make([][]byte, 0, numArgs)
	for i := 0; i < numArgs; i++ {
		arg, adv, err := readBulkString(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, arg)
		pos += adv
	}

	return out, pos, nil
}

// readLine scans for a CRLF-terminated line at the front of buf and
// returns the line (without the CRLF) and the total bytes consumed
// including the CRLF.
func readLine(buf []byte) (line []byte, consumed int, err error) {
	idx := bytes.Index(buf, []byte("\r\n"))
	if idx < 0 {
		if len(buf) > maxCommandSize {
			return nil, 0, ErrProtocol
		}
		return nil, 0, errNeedMore
	}
	return buf[:idx], idx + 2, nil
}

// readBulkString decodes one "$<len>\r\n<bytes>\r\n" element.
func readBulkString(buf []byte) (value []byte, consumed int, err error) {
	line, n, err := readLine(buf)
	if err != nil {
		return nil, 0, err
	}
	if len(line) == 0 || line[0] != '$' {
		return nil, 0, ErrProtocol
	}
	length, err := parseInt(line[1:])
	if err != nil || length < 0 || length > maxBulkLen {
		return nil, 0, ErrProtocol
	}

	need := n + length + 2
	if len(buf) < need {
		if need > maxCommandSize {
			return nil, 0, ErrProtocol
		}
		return nil, 0, errNeedMore
	}
	if buf[n+length] != '\r' || buf[n+length+1] != '\n' {
		return nil, 0, ErrProtocol
	}

	value = make([]byte, length)
	copy(value, buf[n:n+length])
	return value, need, nil
}

func parseInt(b []byte) (int, error) {
	if len(b) == 0 || len(b) > 20 {
		return 0, ErrProtocol
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, ErrProtocol
	}
	return n, nil
}
