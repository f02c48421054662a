// Package rtpsender implements the RTP audio transmission engine
// (spec.md §4.E): it turns a stream of decoded 16-bit big-endian PCM
// into a continuous, sample-clocked RTP stream addressed to a
// broadcast, multicast, static-unicast, or dynamically-requested
// destination set.
package rtpsender

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/arung-agamani/disorder/internal/config"
	"github.com/arung-agamani/disorder/internal/reactor"
	"github.com/pion/rtp"
	"golang.org/x/time/rate"
)

const bytesPerSample = 2 // 16-bit PCM

// Config describes one sender's format and pacing parameters.
type Config struct {
	SampleRate  int
	Channels    int
	PayloadType uint8
	MaxPayload  int           // bytes, spec.md §6 rtp_max_payload
	Ahead       time.Duration // RTP-ahead pacing window, spec.md §4.E
}

// StereoConfig is the default continuous stream format: L16 stereo at
// 44.1kHz, payload type 10 (spec.md §4.E).
func StereoConfig(maxPayload int) Config {
	return Config{SampleRate: 44100, Channels: 2, PayloadType: 10, MaxPayload: maxPayload, Ahead: 2 * time.Second}
}

// MonoConfig is the mono variant, payload type 11.
func MonoConfig(maxPayload int) Config {
	c := StereoConfig(maxPayload)
	c.Channels = 1
	c.PayloadType = 11
	return c
}

// Sender packetizes and paces a continuous PCM stream to a
// destination set via UDP, all on the owning reactor's goroutine.
type Sender struct {
	r    *reactor.Reactor
	log  *slog.Logger
	conn *net.UDPConn
	dest *Destinations
	cfg  Config

	ssrc  uint32
	seq   uint16
	clock *sampleClock

	limiter *rate.Limiter

	pending       []byte
	markerPending bool

	errScore    float64
	stopped     bool
	cancelTimer reactor.Cancel
}

// errorAbortThreshold is the decaying send-error count at which the
// sender gives up (spec.md §4.E "decaying error counter ... abort").
const errorAbortThreshold = 10

// New creates a Sender bound to conn, sending to dest, on r's
// goroutine. Feed and Stop must only be called from r's goroutine
// (true automatically when Feed is wired as a decoder.PCMSink, since
// the decoder posts PCM delivery through the same reactor).
func New(r *reactor.Reactor, conn *net.UDPConn, dest *Destinations, cfg Config, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = 1400
	}
	if cfg.Ahead <= 0 {
		cfg.Ahead = 2 * time.Second
	}
	now := time.Now()
	rateLimit := rate.Limit(cfg.SampleRate * cfg.Channels)
	burst := cfg.SampleRate * cfg.Channels // up to 1s of samples may queue up as a burst
	return &Sender{
		r:             r,
		log:           log,
		conn:          conn,
		dest:          dest,
		cfg:           cfg,
		ssrc:          randomSSRC(),
		clock:         newSampleClock(now, cfg.SampleRate, cfg.Channels),
		limiter:       rate.NewLimiter(rateLimit, burst),
		markerPending: true, // first packet of the session carries the marker bit too
	}
}

func randomSSRC() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// Feed appends newly decoded PCM to the send buffer and pumps the
// pacing loop. Its signature matches decoder.PCMSink; id is unused
// since the sender carries one continuous stream regardless of which
// queue entry produced the audio.
func (s *Sender) Feed(_ string, pcm []byte) {
	if s.stopped {
		return
	}
	s.pending = append(s.pending, pcm...)
	s.pump()
}

// Stop halts transmission; further Feed calls are ignored.
func (s *Sender) Stop() {
	s.stopped = true
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
}

func (s *Sender) aheadSamples() int64 {
	return int64(s.cfg.Ahead.Seconds() * float64(s.cfg.SampleRate) * float64(s.cfg.Channels))
}

// samplesToDuration converts a sample count (at this sender's rate and
// channel count) to the wall-clock time it represents.
func (s *Sender) samplesToDuration(samples int64) time.Duration {
	perSecond := float64(s.cfg.SampleRate * s.cfg.Channels)
	return time.Duration(float64(samples) / perSecond * float64(time.Second))
}

// pump sends as many packets as the RTP-ahead window and the rate
// limiter currently allow, then reschedules itself for when either
// would next permit a send.
func (s *Sender) pump() {
	if s.stopped {
		return
	}
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	now := time.Now()
	if s.clock.resumeAfterIdle(now) {
		s.markerPending = true
	}

	for {
		n := s.nextChunkSize()
		if n <= 0 {
			break
		}
		if over := s.clock.aheadBy(now) - s.aheadSamples(); over >= 0 {
			s.scheduleWake(now, s.samplesToDuration(over+1))
			return
		}
		nSamples := n / bytesPerSample
		resv := s.limiter.ReserveN(now, nSamples)
		if !resv.OK() {
			break
		}
		if delay := resv.DelayFrom(now); delay > 0 {
			resv.Cancel()
			s.scheduleWake(now, delay)
			return
		}
		s.sendChunk(now, n)
		now = time.Now()
	}

	if len(s.pending) == 0 {
		s.clock.markIdle()
	}
}

// nextChunkSize returns how many bytes the next packet should carry:
// up to cfg.MaxPayload, always a whole number of samples, capped to
// what is actually buffered.
func (s *Sender) nextChunkSize() int {
	n := s.cfg.MaxPayload
	n -= n % bytesPerSample
	if n > len(s.pending) {
		n = len(s.pending) - len(s.pending)%bytesPerSample
	}
	return n
}

func (s *Sender) sendChunk(now time.Time, n int) {
	payload := s.pending[:n]
	s.pending = s.pending[n:]

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         s.markerPending,
			PayloadType:    s.cfg.PayloadType,
			SequenceNumber: s.seq,
			Timestamp:      uint32(s.clock.rtpTime),
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
	s.markerPending = false
	s.seq++

	data, err := pkt.Marshal()
	if err != nil {
		s.log.Error("rtpsender: marshal failed", "err", err)
		return
	}
	s.clock.advance(uint64(n / bytesPerSample))
	s.dispatch(data)
}

// dispatch writes data to every current destination (one for
// broadcast/multicast/unicast, zero-or-more for request mode).
func (s *Sender) dispatch(data []byte) {
	targets := s.dest.Targets()
	if len(targets) == 0 {
		return
	}
	sentOK := false
	for _, addr := range targets {
		if _, err := s.conn.WriteToUDP(data, addr); err != nil {
			s.recordError(err)
			continue
		}
		sentOK = true
	}
	if sentOK {
		s.decayErrors()
	}
}

func (s *Sender) recordError(err error) {
	s.errScore++
	s.log.Warn("rtpsender: send error", "err", err, "score", s.errScore)
	if s.errScore >= errorAbortThreshold {
		s.log.Error("rtpsender: aborting after repeated send errors", "score", s.errScore)
		s.Stop()
	}
}

func (s *Sender) decayErrors() {
	if s.errScore <= 0 {
		return
	}
	s.errScore /= 2
}

func (s *Sender) scheduleWake(now time.Time, delay time.Duration) {
	if delay <= 0 {
		delay = time.Millisecond
	}
	s.cancelTimer = s.r.After(delay, s.pump)
}

// NewConn binds a UDP socket and applies the sockopts appropriate to
// mode, ready for use as a Sender's conn.
func NewConn(mode config.RTPMode, ttl int, loop bool) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("bind rtp socket: %w", err)
	}
	if err := configureSocket(conn, mode, ttl, loop); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
