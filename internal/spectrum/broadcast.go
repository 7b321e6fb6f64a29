// SPDX-License-Identifier: MIT
package spectrum

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Message types carried on the spectrum broadcast channel.
const (
	MsgPSD       = "psd"
	MsgWaterfall = "waterfall"
	MsgPeak      = "peak"
)

// Message is one spectrum engine or peak meter publication.
type Message struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Row  string    `json:"row,omitempty"`  // CSV dB power per bin
	Line string    `json:"line,omitempty"` // ASCII waterfall
	DBFS float64   `json:"dbfs,omitempty"` // peak level
}

// Sink receives published messages. Implementations must not block the
// publisher; dropping under pressure is acceptable for sinks.
type Sink interface {
	Publish(Message)
}

// Broadcaster fans published messages out to registered sinks.
type Broadcaster struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddSink registers a sink for all subsequent publications.
func (b *Broadcaster) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish hands the message to every registered sink.
func (b *Broadcaster) Publish(m Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Publish(m)
	}
}

// LogSink prints waterfall lines to stdout, one line per published
// average, giving a terminal-only waterfall view.
type LogSink struct{}

func (LogSink) Publish(m Message) {
	if m.Type == MsgWaterfall {
		fmt.Println(m.Line)
	}
}

// UDPSink forwards every message as one JSON datagram. Send errors are
// ignored: a UDP consumer coming and going must not disturb capture.
type UDPSink struct {
	conn net.Conn
}

// NewUDPSink resolves the target address once and keeps a connected
// UDP socket.
func NewUDPSink(addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial udp target %q: %w", addr, err)
	}
	return &UDPSink{conn: conn}, nil
}

func (u *UDPSink) Publish(m Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	u.conn.Write(payload)
}

func (u *UDPSink) Close() error {
	return u.conn.Close()
}
