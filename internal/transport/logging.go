// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"hummer/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level. It is used when no network transport is configured.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	lt.sent.Add(1)
	if log.Enabled(log.LevelDebug) {
		log.Debugf("Transport: %T %+v", data, data)
	}
	return nil
}

// Sent returns the number of payloads seen.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed after %d payloads", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
