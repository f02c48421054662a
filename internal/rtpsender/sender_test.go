package rtpsender

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/arung-agamani/disorder/internal/config"
	"github.com/arung-agamani/disorder/internal/reactor"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("simulated send error")

func runReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r := reactor.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(cancel)
	return r
}

// newLoopbackReceiver binds a UDP socket the test can read packets
// from, standing in for an RTP listener.
func newLoopbackReceiver(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestSender(t *testing.T, r *reactor.Reactor, receiver *net.UDPConn, maxPayload int) *Sender {
	t.Helper()
	dest, err := NewDestinations(config.RTPUnicast, receiver.LocalAddr().String())
	require.NoError(t, err)

	senderConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	t.Cleanup(func() { senderConn.Close() })

	cfg := StereoConfig(maxPayload)
	return New(r, senderConn, dest, cfg, nil)
}

func feedSync(r *reactor.Reactor, s *Sender, pcm []byte) {
	done := make(chan struct{})
	r.Post(func() {
		s.Feed("track", pcm)
		close(done)
	})
	<-done
}

func readPacket(t *testing.T, conn *net.UDPConn) *rtp.Packet {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	pkt := &rtp.Packet{}
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	return pkt
}

func TestSenderSplitsIntoPacketsWithMarkerOnFirst(t *testing.T) {
	r := runReactor(t)
	receiver := newLoopbackReceiver(t)
	s := newTestSender(t, r, receiver, 400) // forces multiple packets

	pcm := make([]byte, 2000) // 500 stereo frames
	for i := range pcm {
		pcm[i] = byte(i)
	}
	feedSync(r, s, pcm)

	first := readPacket(t, receiver)
	require.True(t, first.Marker)
	require.EqualValues(t, 10, first.PayloadType)
	require.EqualValues(t, 0, first.SequenceNumber)
	require.EqualValues(t, 0, first.Timestamp)
	require.Len(t, first.Payload, 400)

	second := readPacket(t, receiver)
	require.False(t, second.Marker)
	require.EqualValues(t, 1, second.SequenceNumber)
	require.EqualValues(t, 200, second.Timestamp) // 400 bytes / 2 bytes-per-sample
}

func TestSenderSendsShortChunkImmediately(t *testing.T) {
	r := runReactor(t)
	receiver := newLoopbackReceiver(t)
	s := newTestSender(t, r, receiver, 1400)

	// A chunk smaller than MaxPayload is sent right away rather than
	// held back waiting to fill a full packet, to keep latency low.
	pcm := make([]byte, 100)
	feedSync(r, s, pcm)

	pkt := readPacket(t, receiver)
	require.Len(t, pkt.Payload, 100)
}

func TestSenderResumeAfterIdleSetsMarkerAgain(t *testing.T) {
	r := runReactor(t)
	receiver := newLoopbackReceiver(t)
	s := newTestSender(t, r, receiver, 1400)

	feedSync(r, s, make([]byte, 400))
	first := readPacket(t, receiver)
	require.True(t, first.Marker)

	// mark the clock idle, as the sender does once its buffer drains, so
	// the next Feed is treated as resuming after a gap.
	done := make(chan struct{})
	r.Post(func() {
		s.clock.markIdle()
		close(done)
	})
	<-done

	feedSync(r, s, make([]byte, 400))
	second := readPacket(t, receiver)
	require.True(t, second.Marker)
}

func TestSenderStopSuppressesFurtherSends(t *testing.T) {
	r := runReactor(t)
	receiver := newLoopbackReceiver(t)
	s := newTestSender(t, r, receiver, 1400)

	done := make(chan struct{})
	r.Post(func() {
		s.Stop()
		close(done)
	})
	<-done

	feedSync(r, s, make([]byte, 400))
	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 64)
	_, err := receiver.Read(buf)
	require.Error(t, err)
}

func TestSenderAbortsAfterRepeatedSendErrors(t *testing.T) {
	r := runReactor(t)
	receiver := newLoopbackReceiver(t)
	s := newTestSender(t, r, receiver, 1400)

	done := make(chan struct{})
	r.Post(func() {
		for i := 0; i < errorAbortThreshold; i++ {
			s.recordError(errTest)
		}
		close(done)
	})
	<-done

	require.True(t, s.stopped)
}
