// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hummer/internal/transport"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewPacket(t *testing.T) {
	tests := []struct {
		name   string
		status transport.Status
		want   Packet
	}{
		{
			"Silent",
			transport.Status{Mode: "IDLE", Level: 0.001, Midi: 60},
			Packet{Midi: -1, Level: 0.001},
		},
		{
			"Sounding while recording",
			transport.Status{
				Mode: "RECORD", Gate: true, Voiced: true, Sounding: true, Recording: true,
				Midi: 69, Cents: -12.5, Level: 0.25, Frequency: 437,
			},
			Packet{
				Flags: FlagGate | FlagVoiced | FlagSounding | FlagRecording,
				Mode:  3, Midi: 69, Cents: -12.5, Level: 0.25, Frequency: 437,
			},
		},
		{
			"Gate open without pitch",
			transport.Status{Mode: "MIDI", Gate: true},
			Packet{Flags: FlagGate, Mode: 1, Midi: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPacket(tt.status))
		})
	}
}

func TestDecodePacketSize(t *testing.T) {
	_, err := DecodePacket(make([]byte, PacketSize-1))
	assert.Error(t, err)
}

func TestPublisherSendsStatus(t *testing.T) {
	listener := listen(t)

	sender, err := NewUDPSender(listener.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	provider := transport.StatusFunc(func() transport.Status {
		return transport.Status{Mode: "MIDI", Gate: true, Voiced: true, Sounding: true, Midi: 62, Cents: 3}
	})
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, provider)
	require.NoError(t, err)
	pub.Start()
	pub.Start()

	buf := make([]byte, 64)
	var last uint32
	for i := 0; i < 3; i++ {
		require.NoError(t, listener.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := listener.ReadFromUDP(buf)
		require.NoError(t, err)
		require.Equal(t, PacketSize, n)

		pkt, err := DecodePacket(buf[:n])
		require.NoError(t, err)
		assert.Greater(t, pkt.Sequence, last)
		last = pkt.Sequence
		assert.Equal(t, int16(62), pkt.Midi)
		assert.Equal(t, float32(3), pkt.Cents)
		assert.Equal(t, uint8(1), pkt.Mode)
		assert.NotZero(t, pkt.Timestamp)
		assert.Equal(t, FlagGate|FlagVoiced|FlagSounding, pkt.Flags)
	}

	require.NoError(t, pub.Stop())
	require.NoError(t, pub.Close())
}

func TestPublisherArguments(t *testing.T) {
	listener := listen(t)
	sender, err := NewUDPSender(listener.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	provider := transport.StatusFunc(func() transport.Status { return transport.Status{} })

	_, err = NewUDPPublisher(time.Millisecond, nil, provider)
	assert.Error(t, err)
	_, err = NewUDPPublisher(time.Millisecond, sender, nil)
	assert.Error(t, err)

	pub, err := NewUDPPublisher(0, sender, provider)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, pub.interval)
	assert.NoError(t, pub.Stop())
}

func TestSenderClosed(t *testing.T) {
	listener := listen(t)
	sender, err := NewUDPSender(listener.LocalAddr().String())
	require.NoError(t, err)

	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.Send([]byte{1}), ErrSenderClosed)
}

func TestSenderBadAddress(t *testing.T) {
	_, err := NewUDPSender("not an address")
	assert.Error(t, err)
}
