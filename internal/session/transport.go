// Package session manages the lifecycle of a sensor connection, from
// port discovery through the read loop to teardown.
package session

import "io"

// Transport is the byte source a session reads from. Close must release
// any read blocked in another goroutine; the controller relies on this
// to unblock its loop during teardown.
type Transport interface {
	io.Reader
	io.Closer
}

// readerTransport adapts any io.ReadCloser, such as a captured telemetry
// file, into a Transport.
type readerTransport struct {
	io.ReadCloser
}

// NewReaderTransport wraps rc for use as a session transport. It is used
// by file mode and by tests; closing it does not interrupt a pending
// read unless the underlying ReadCloser does.
func NewReaderTransport(rc io.ReadCloser) Transport {
	return &readerTransport{rc}
}
