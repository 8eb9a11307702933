// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"hummer/internal/log"
	"hummer/internal/segment"
	"hummer/internal/transport"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 33 * time.Millisecond

// UDPPublisher periodically fetches the engine status, packs it into a
// fixed binary packet and sends it with a UDPSender. It runs in a separate
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	provider transport.StatusProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher sending the provider's status every
// interval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, provider transport.StatusProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("UDPPublisher: status provider cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("UDPPublisher: Initializing (Interval: %s, Packet: %d bytes)", interval, PacketSize)
	packetBuffer := new(bytes.Buffer)
	packetBuffer.Grow(PacketSize)

	return &UDPPublisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: packetBuffer,
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("UDPPublisher: Publisher goroutine started")
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("UDPPublisher: Stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------+
| Field       | Data Type | Size (Bytes) | Description                   |
|-------------|-----------|--------------|-------------------------------|
| Sequence    | uint32    | 4            | Monotonically increasing      |
| Timestamp   | int64     | 8            | Nanoseconds since epoch       |
| Flags       | uint8     | 1            | Gate, voiced, sounding, rec   |
| Mode        | uint8     | 1            | 0 idle, 1 midi, 2 voice, 3 rec|
| Midi        | int16     | 2            | Sounding note, -1 when silent |
| Cents       | float32   | 4            | Deviation from Midi           |
| Level       | float32   | 4            | Boosted input RMS             |
| Frequency   | float32   | 4            | Estimate in Hz, 0 if unvoiced |
+------------------------------------------------------------------------+
*/

// PacketSize is the encoded size of a Packet.
const PacketSize = 28

// Flag bits.
const (
	FlagGate uint8 = 1 << iota
	FlagVoiced
	FlagSounding
	FlagRecording
)

// Packet is one status datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Flags     uint8
	Mode      uint8
	Midi      int16
	Cents     float32
	Level     float32
	Frequency float32
}

// NewPacket packs st. Sequence and Timestamp are left to the caller.
func NewPacket(st transport.Status) Packet {
	pkt := Packet{
		Midi:      -1,
		Cents:     float32(st.Cents),
		Level:     float32(st.Level),
		Frequency: float32(st.Frequency),
	}
	if mode, err := segment.ParseMode(st.Mode); err == nil {
		pkt.Mode = uint8(mode)
	}
	if st.Gate {
		pkt.Flags |= FlagGate
	}
	if st.Voiced {
		pkt.Flags |= FlagVoiced
	}
	if st.Sounding {
		pkt.Flags |= FlagSounding
		pkt.Midi = int16(st.Midi)
	}
	if st.Recording {
		pkt.Flags |= FlagRecording
	}
	return pkt
}

// DecodePacket parses a datagram produced by the publisher.
func DecodePacket(data []byte) (Packet, error) {
	var pkt Packet
	if len(data) != PacketSize {
		return pkt, fmt.Errorf("packet size %d, want %d", len(data), PacketSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &pkt); err != nil {
		return pkt, fmt.Errorf("decode packet: %w", err)
	}
	return pkt, nil
}

// buildAndSendPacket fetches the status, packs it and sends it.
func (p *UDPPublisher) buildAndSendPacket() {
	pkt := NewPacket(p.provider.Status())
	p.sequenceNum++
	pkt.Sequence = p.sequenceNum
	pkt.Timestamp = time.Now().UnixNano()

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, &pkt); err != nil {
		log.Errorf("UDPPublisher: Error packing status: %v", err)
		return
	}

	// The sender logs failures itself.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d", p.sequenceNum)
	}
}

// Close stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
