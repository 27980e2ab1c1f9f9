package httpserver

import "errors"

var (
	// ErrStart wraps listener and serve failures during startup.
	ErrStart = errors.New("http server failed to start")
	// ErrShutdown indicates the drain deadline passed with requests still in flight.
	ErrShutdown = errors.New("http server did not shut down cleanly")
)
