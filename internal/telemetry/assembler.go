package telemetry

import "strings"

// LineAssembler reassembles complete newline-delimited records from
// arbitrarily chunked input. A single possibly-incomplete fragment is carried
// between chunks, so record boundaries never depend on how the transport
// happened to split the stream.
//
// Invariant: joining all emitted lines with "\n", plus the pending fragment,
// reproduces the consumed input exactly.
type LineAssembler struct {
	pending string
}

// Push consumes one chunk and returns the complete lines it finished, in
// order. A chunk with no separator returns nil and only grows the pending
// fragment; a zero-length chunk is a no-op.
func (a *LineAssembler) Push(chunk string) []string {
	if chunk == "" {
		return nil
	}
	parts := strings.Split(a.pending+chunk, "\n")
	a.pending = parts[len(parts)-1]
	if len(parts) == 1 {
		return nil
	}
	return parts[:len(parts)-1]
}

// Pending returns the current incomplete fragment.
func (a *LineAssembler) Pending() string {
	return a.pending
}

// Flush returns the pending fragment and resets the assembler. Used at end of
// stream, where a final unterminated record may still be worth parsing.
func (a *LineAssembler) Flush() string {
	line := a.pending
	a.pending = ""
	return line
}
