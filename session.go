package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Transport is the byte stream the session talks over. Read is expected to
// be bounded by the transport's receive timeout and to return ErrTimedOut
// when it elapses; Write is bounded by the send timeout. The session never
// opens a transport, but it closes the one it was given on fatal errors and
// on Close.
type Transport interface {
	io.ReadWriteCloser
}

// ErrTimedOut is returned by a Transport read or write whose socket timeout
// elapsed before any bytes moved.
var ErrTimedOut = errors.New("operation timed out")

// ErrNotActive is returned by Apply before a successful Init.
var ErrNotActive = errors.New("session is not active")

// NackError is a clean negative acknowledgement from the device.
type NackError struct {
	Opcode byte
	Reason byte
}

func (e *NackError) Error() string {
	return fmt.Sprintf("device rejected %s (reason 0x%02X)", opcodeName(e.Opcode), e.Reason)
}

type sessionState int

const (
	stateUnestablished sessionState = iota
	stateActive
	stateClosed
)

// Session drives one connection: handshake first, then one setting at a
// time in strict request/response turns. Settings may only be applied while
// the session is active.
type Session struct {
	t     Transport
	log   *logrus.Entry
	state sessionState
	rbuf  []byte // bytes read but not yet decoded
}

// NewSession wraps an open transport. The caller still owns nothing: from
// here on the session closes the transport on fatal errors and on Close.
func NewSession(t Transport, log *logrus.Entry) *Session {
	return &Session{t: t, log: log}
}

// Init performs the hello handshake. On success the session becomes active;
// on any failure it closes itself and the transport.
func (s *Session) Init() error {
	if s.state != stateUnestablished {
		return fmt.Errorf("init: session already used")
	}
	outcome, err := s.roundTrip(opHello, []byte{protocolRevision})
	if outcome != Acked {
		s.Close()
		return fmt.Errorf("handshake: %w", err)
	}
	s.state = stateActive
	s.log.Debug("handshake complete")
	return nil
}

// Apply sends one setting and waits for the device's answer. The session
// stays active whatever the outcome; a rejected or unanswered setting does
// not undo previously applied ones.
func (s *Session) Apply(setting Setting) (Outcome, error) {
	if s.state != stateActive {
		return outcomeUnknown, ErrNotActive
	}
	opcode, payload := setting.command()
	return s.roundTrip(opcode, payload)
}

// ApplyAll applies settings in order, stopping after the first one that is
// not acked. It returns one Result per attempted setting.
func (s *Session) ApplyAll(settings []Setting) []Result {
	results := make([]Result, 0, len(settings))
	for _, setting := range settings {
		outcome, err := s.Apply(setting)
		results = append(results, Result{Setting: setting, Outcome: outcome, Err: err})
		if outcome != Acked {
			break
		}
	}
	return results
}

// Close shuts the transport down. Safe to call any number of times; only
// the first call touches the transport.
func (s *Session) Close() error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	return s.t.Close()
}

// roundTrip performs exactly one write and then reads until a complete
// frame decodes, the receive timeout elapses, or the response turns out to
// be garbage. There is no automatic retry: the socket timeouts are the only
// backoff mechanism.
func (s *Session) roundTrip(opcode byte, payload []byte) (Outcome, error) {
	req, err := encodeFrame(opcode, payload)
	if err != nil {
		return outcomeUnknown, err
	}
	s.log.WithFields(logrus.Fields{"opcode": opcodeName(opcode), "len": len(req)}).Debug("sending frame")
	if _, err := s.t.Write(req); err != nil {
		if errors.Is(err, ErrTimedOut) {
			return TimedOut, fmt.Errorf("send %s: %w", opcodeName(opcode), ErrTimedOut)
		}
		return outcomeUnknown, fmt.Errorf("send %s: %w", opcodeName(opcode), err)
	}

	resp, err := s.readFrame()
	if err != nil {
		var malformed *MalformedError
		switch {
		case errors.Is(err, ErrTimedOut):
			return TimedOut, fmt.Errorf("no response to %s: %w", opcodeName(opcode), ErrTimedOut)
		case errors.As(err, &malformed):
			return Malformed, fmt.Errorf("response to %s: %w", opcodeName(opcode), err)
		default:
			return outcomeUnknown, fmt.Errorf("read response to %s: %w", opcodeName(opcode), err)
		}
	}

	s.log.WithFields(logrus.Fields{"opcode": opcodeName(resp.Opcode), "len": len(resp.Payload)}).Debug("received frame")
	if resp.Opcode != opcode {
		return Malformed, &MalformedError{Detail: fmt.Sprintf("response opcode %s to a %s request", opcodeName(resp.Opcode), opcodeName(opcode))}
	}
	if len(resp.Payload) < 1 {
		return Malformed, &MalformedError{Detail: "response carries no status byte"}
	}
	if status := resp.Payload[0]; status != statusOK {
		return Nacked, &NackError{Opcode: opcode, Reason: status}
	}
	return Acked, nil
}

// readFrame reads from the transport until the buffer decodes to one
// complete frame. Leftover bytes stay buffered for the next response.
func (s *Session) readFrame() (frame, error) {
	for {
		if len(s.rbuf) > 0 {
			f, n, err := decodeFrame(s.rbuf)
			if err == nil {
				s.rbuf = s.rbuf[n:]
				return f, nil
			}
			if !errors.Is(err, errIncomplete) {
				s.rbuf = nil
				return frame{}, err
			}
		}
		chunk := make([]byte, frameHeaderLen+maxPayloadLen+checksumLen)
		n, err := s.t.Read(chunk)
		if n > 0 {
			s.rbuf = append(s.rbuf, chunk[:n]...)
			continue
		}
		if err != nil {
			return frame{}, err
		}
		return frame{}, io.ErrUnexpectedEOF
	}
}
