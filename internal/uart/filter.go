package uart

// Post-processing for UART/serial logs captured from the VM console:
// probe escape decoding, debug-putc extraction and substring filtering.

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// debugPutcPattern matches the kernel's syscall trace lines. a7 carries the
// syscall number, a0 the character argument.
var debugPutcPattern = regexp.MustCompile(`SYSCALL a7=([0-9a-fA-F]+)\s+a0=([0-9a-fA-F]+)`)

// sysDebugPutc is the syscall number of the single-character debug write.
const sysDebugPutc = 0x10

// Filter describes one pass over a UART log stream.
type Filter struct {
	StripEscape      bool
	ExtractDebugPutc bool
	Grep             []string // keep lines containing all of these
	Exclude          []string // drop lines containing any of these
}

// DecodeEscape strips the E-interleaved encoding emitted by the probe UART
// shim. A line decodes only when every even-indexed character (ignoring the
// trailing newline) is the sentinel 'E'; anything else passes through
// untouched, since a real log line may simply contain an 'E'.
func DecodeEscape(line string) string {
	stripped := strings.TrimSuffix(line, "\n")
	if stripped == "" || stripped[0] != 'E' {
		return line
	}
	for i := 0; i < len(stripped); i += 2 {
		if stripped[i] != 'E' {
			return line
		}
	}

	var b strings.Builder
	for i := 1; i < len(stripped); i += 2 {
		b.WriteByte(stripped[i])
	}
	if strings.HasSuffix(line, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// keep applies the include/exclude substring filters. Includes have AND
// semantics.
func (f *Filter) keep(line string) bool {
	for _, needle := range f.Grep {
		if !strings.Contains(line, needle) {
			return false
		}
	}
	for _, needle := range f.Exclude {
		if strings.Contains(line, needle) {
			return false
		}
	}
	return true
}

// Run streams r through the filter and writes the surviving output to w.
// With ExtractDebugPutc set, grep/exclude do not apply: the whole stream is
// scanned for debug-putc syscalls and their characters are re-assembled
// into lines.
func (f *Filter) Run(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	var putcBuf strings.Builder

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if f.StripEscape {
				line = DecodeEscape(line)
			}
			if f.ExtractDebugPutc {
				if werr := extractDebugPutc(line, &putcBuf, w); werr != nil {
					return werr
				}
			} else if f.keep(line) {
				if _, werr := io.WriteString(w, line); werr != nil {
					return fmt.Errorf("write output: %w", werr)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}

	// A partial debug line at the end of the stream is emitted without a
	// terminator.
	if f.ExtractDebugPutc && putcBuf.Len() > 0 {
		if _, err := io.WriteString(w, putcBuf.String()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

// extractDebugPutc inspects one trace line for a debug-putc syscall and
// feeds its character into the line buffer. Newline and carriage return
// flush the buffer; printable ASCII and TAB accumulate; everything else is
// dropped.
func extractDebugPutc(line string, buf *strings.Builder, w io.Writer) error {
	m := debugPutcPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	a7, err := strconv.ParseUint(m[1], 16, 64)
	if err != nil || a7 != sysDebugPutc {
		return nil
	}
	a0, err := strconv.ParseUint(m[2], 16, 64)
	if err != nil {
		return nil
	}

	ch := byte(a0 & 0xFF)
	switch {
	case ch == '\n' || ch == '\r':
		out := "\n"
		if buf.Len() > 0 {
			out = buf.String() + "\n"
			buf.Reset()
		}
		if _, err := io.WriteString(w, out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case ch == '\t' || (ch >= 0x20 && ch <= 0x7E):
		buf.WriteByte(ch)
	}
	return nil
}
