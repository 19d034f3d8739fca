package podcache

import (
	"bufio"
	"strconv"
)

func writeSimple(w *bufio.Writer, s string) {
	w.WriteByte('+')
	w.WriteString(s)
	w.WriteString("\r\n")
}

func writeError(w *bufio.Writer, msg string) {
	w.WriteByte('-')
	w.WriteString(msg)
	w.WriteString("\r\n")
}

func writeInteger(w *bufio.Writer, n int64) {
	w.WriteByte(':')
	w.WriteString(strconv.FormatInt(n, 10))
	w.WriteString("\r\n")
}

func writeBulk(w *bufio.Writer, value []byte, ok bool) {
	if !ok {
		w.WriteString("$-1\r\n")
		return
	}
	w.WriteByte('$')
	w.WriteString(strconv.Itoa(len(value)))
	w.WriteString("\r\n")
	w.Write(value)
	w.WriteString("\r\n")
}
