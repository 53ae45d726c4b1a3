package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// defaultChannel is the RFCOMM channel the headset listens on.
const defaultChannel uint8 = 8

// Socket timeouts matching the original tool: connect/send bounded by the
// send timeout, each response read bounded by the receive timeout.
const (
	defaultSendTimeout    = 5 * time.Second
	defaultReceiveTimeout = 1 * time.Second
)

// rfcommConn is a Transport over an RFCOMM socket. Timeouts are fixed at
// dial time via SO_SNDTIMEO/SO_RCVTIMEO; a timed-out read or write
// surfaces as ErrTimedOut.
type rfcommConn struct {
	fd     int
	closed bool
}

// parseBDAddr converts "AA:BB:CC:DD:EE:FF" to the kernel's bdaddr_t byte
// order (least significant octet first).
func parseBDAddr(s string) ([6]byte, error) {
	var addr [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("invalid Bluetooth address %q", s)
	}
	for i, p := range parts {
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) != 2 {
			return addr, fmt.Errorf("invalid Bluetooth address %q", s)
		}
		addr[5-i] = byte(b)
	}
	return addr, nil
}

// dialRFCOMM opens a stream socket to the given address and channel. The
// connect attempt itself is bounded by sendTimeout.
func dialRFCOMM(addr string, channel uint8, sendTimeout, receiveTimeout time.Duration) (*rfcommConn, error) {
	bd, err := parseBDAddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("create RFCOMM socket: %w", err)
	}

	snd := unix.NsecToTimeval(sendTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &snd); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set send timeout: %w", err)
	}
	rcv := unix.NsecToTimeval(receiveTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &rcv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}

	sa := &unix.SockaddrRFCOMM{Addr: bd, Channel: channel}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect to %s channel %d: %w", addr, channel, err)
	}
	return &rfcommConn{fd: fd}, nil
}

func (c *rfcommConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
			return 0, fmt.Errorf("read: %w", ErrTimedOut)
		default:
			return 0, fmt.Errorf("read: %w", err)
		}
	}
}

func (c *rfcommConn) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		switch {
		case err == nil:
			written += n
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
			return written, fmt.Errorf("write: %w", ErrTimedOut)
		default:
			return written, fmt.Errorf("write: %w", err)
		}
	}
	return written, nil
}

func (c *rfcommConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}
