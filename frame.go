package main

import (
	"errors"
	"fmt"
)

// Wire format, request and response alike:
//
//	[0]      start marker (0xB5)
//	[1]      opcode
//	[2]      payload length N
//	[3..3+N) payload
//	[3+N]    checksum: XOR of opcode, length and payload bytes
//
// The start marker is excluded from the checksum so that resynchronisation
// after garbage never depends on the garbage itself.
const (
	frameMarker    byte = 0xB5
	frameHeaderLen      = 3 // marker + opcode + length
	checksumLen         = 1
	maxPayloadLen       = 64
)

// errIncomplete reports that the buffer does not yet hold a full frame and
// more bytes must be read.
var errIncomplete = errors.New("incomplete frame")

// MalformedError reports bytes that can never form a valid frame: a bad
// start marker, an impossible length, or a checksum mismatch.
type MalformedError struct {
	Detail string
}

func (e *MalformedError) Error() string {
	return "malformed frame: " + e.Detail
}

// frame is one decoded protocol message.
type frame struct {
	Opcode  byte
	Payload []byte
}

// checksum computes the XOR of opcode, payload length and payload bytes.
func checksum(opcode byte, payload []byte) byte {
	c := opcode ^ byte(len(payload))
	for _, b := range payload {
		c ^= b
	}
	return c
}

// encodeFrame builds the wire bytes for one command. The same opcode and
// payload always produce the same bytes.
func encodeFrame(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, fmt.Errorf("payload for %s is %d bytes, max %d", opcodeName(opcode), len(payload), maxPayloadLen)
	}
	buf := make([]byte, 0, frameHeaderLen+len(payload)+checksumLen)
	buf = append(buf, frameMarker, opcode, byte(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, checksum(opcode, payload))
	return buf, nil
}

// decodeFrame examines buf for one complete frame starting at offset 0.
// It returns the frame and the number of bytes consumed, errIncomplete when
// buf holds fewer bytes than the declared length requires, or a
// *MalformedError when the bytes can never become a valid frame. It never
// blocks and never reads beyond buf.
func decodeFrame(buf []byte) (frame, int, error) {
	if len(buf) == 0 {
		return frame{}, 0, errIncomplete
	}
	if buf[0] != frameMarker {
		return frame{}, 0, &MalformedError{Detail: fmt.Sprintf("unexpected start byte 0x%02X", buf[0])}
	}
	if len(buf) < frameHeaderLen {
		return frame{}, 0, errIncomplete
	}
	opcode, plen := buf[1], int(buf[2])
	if plen > maxPayloadLen {
		return frame{}, 0, &MalformedError{Detail: fmt.Sprintf("declared payload length %d exceeds max %d", plen, maxPayloadLen)}
	}
	total := frameHeaderLen + plen + checksumLen
	if len(buf) < total {
		return frame{}, 0, errIncomplete
	}
	payload := buf[frameHeaderLen : frameHeaderLen+plen]
	if got, want := buf[total-1], checksum(opcode, payload); got != want {
		return frame{}, 0, &MalformedError{Detail: fmt.Sprintf("checksum 0x%02X, computed 0x%02X", got, want)}
	}
	f := frame{Opcode: opcode, Payload: make([]byte, plen)}
	copy(f.Payload, payload)
	return f, total, nil
}
