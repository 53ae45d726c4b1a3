package main

import (
	"fmt"
	"strconv"
)

// Opcodes understood by the headset. A response frame echoes the opcode of
// the request it answers; byte 0 of the response payload is a status code.
const (
	opHello          byte = 0x01
	opName           byte = 0x02
	opNoiseCancel    byte = 0x03
	opAutoOff        byte = 0x04
	opPromptLanguage byte = 0x05
)

// Status byte in a response payload. Zero is an ack, anything else is the
// device's nack reason.
const statusOK byte = 0x00

// protocolRevision is sent in the hello payload during the handshake.
const protocolRevision byte = 0x01

// MaxNameLen is the longest device name the headset accepts, in bytes.
const MaxNameLen = 31

// opcodeNames maps opcodes to names for log output.
var opcodeNames = map[byte]string{
	opHello:          "hello",
	opName:           "name",
	opNoiseCancel:    "noise-cancelling",
	opAutoOff:        "auto-off",
	opPromptLanguage: "prompt-language",
}

func opcodeName(op byte) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", op)
}

// Setting is one device setting to apply. Each concrete type maps to
// exactly one opcode/payload pair on the wire.
type Setting interface {
	// command returns the opcode and payload bytes for this setting.
	command() (opcode byte, payload []byte)
	String() string
}

// --- device name ---

// Name sets the headset's advertised name.
type Name struct {
	value string
}

// NewName builds a Name setting. Input longer than MaxNameLen bytes is
// truncated; truncated reports whether that happened so the caller can warn
// without aborting.
func NewName(s string) (n Name, truncated bool) {
	if len(s) > MaxNameLen {
		return Name{value: s[:MaxNameLen]}, true
	}
	return Name{value: s}, false
}

func (n Name) command() (byte, []byte) {
	return opName, []byte(n.value)
}

func (n Name) String() string {
	return fmt.Sprintf("name=%q", n.value)
}

// --- noise cancelling ---

// NoiseCancelling selects the active noise cancelling level.
type NoiseCancelling byte

const (
	NCOff  NoiseCancelling = 0x00
	NCHigh NoiseCancelling = 0x01
	NCLow  NoiseCancelling = 0x03
)

var ncByToken = map[string]NoiseCancelling{
	"high": NCHigh,
	"low":  NCLow,
	"off":  NCOff,
}

// ParseNoiseCancelling converts a CLI token (high, low, off) to a setting.
func ParseNoiseCancelling(s string) (NoiseCancelling, error) {
	nc, ok := ncByToken[s]
	if !ok {
		return 0, fmt.Errorf("invalid noise cancelling level %q (want high, low or off)", s)
	}
	return nc, nil
}

func (nc NoiseCancelling) command() (byte, []byte) {
	return opNoiseCancel, []byte{byte(nc)}
}

func (nc NoiseCancelling) String() string {
	switch nc {
	case NCHigh:
		return "noise-cancelling=high"
	case NCLow:
		return "noise-cancelling=low"
	default:
		return "noise-cancelling=off"
	}
}

// --- auto-off ---

// AutoOff is the idle auto power-off timer in minutes; zero means never.
type AutoOff uint8

const AutoOffNever AutoOff = 0

// autoOffMinutes is the domain the device accepts, besides "never".
var autoOffMinutes = []AutoOff{5, 20, 40, 60, 180}

// ParseAutoOff converts a CLI token to an auto-off timer. The match is a
// single ordered decision: an exact numeric match against the enumerated
// minute values first, then the literal string "never", then rejection.
func ParseAutoOff(s string) (AutoOff, error) {
	if n, err := strconv.Atoi(s); err == nil {
		for _, m := range autoOffMinutes {
			if n == int(m) {
				return m, nil
			}
		}
		return 0, fmt.Errorf("invalid auto-off time %q (want never, 5, 20, 40, 60 or 180)", s)
	}
	if s == "never" {
		return AutoOffNever, nil
	}
	return 0, fmt.Errorf("invalid auto-off time %q (want never, 5, 20, 40, 60 or 180)", s)
}

func (ao AutoOff) command() (byte, []byte) {
	return opAutoOff, []byte{byte(ao)}
}

func (ao AutoOff) String() string {
	if ao == AutoOffNever {
		return "auto-off=never"
	}
	return fmt.Sprintf("auto-off=%dm", uint8(ao))
}

// --- voice prompt language ---

// PromptLanguage selects the voice prompt language, or disables prompts.
type PromptLanguage byte

const PLOff PromptLanguage = 0x00

// plByToken holds the supported languages in their wire order (0x01..0x0B).
var plByToken = map[string]PromptLanguage{
	"off": PLOff,
	"en":  0x01,
	"fr":  0x02,
	"it":  0x03,
	"de":  0x04,
	"es":  0x05,
	"pt":  0x06,
	"zh":  0x07,
	"ko":  0x08,
	"nl":  0x09,
	"ja":  0x0A,
	"sv":  0x0B,
}

// ParsePromptLanguage converts a CLI token (off or a language code) to a
// prompt language setting.
func ParsePromptLanguage(s string) (PromptLanguage, error) {
	pl, ok := plByToken[s]
	if !ok {
		return 0, fmt.Errorf("invalid prompt language %q (want off, en, fr, it, de, es, pt, zh, ko, nl, ja or sv)", s)
	}
	return pl, nil
}

func (pl PromptLanguage) command() (byte, []byte) {
	return opPromptLanguage, []byte{byte(pl)}
}

func (pl PromptLanguage) String() string {
	for tok, v := range plByToken {
		if v == pl {
			return "prompt-language=" + tok
		}
	}
	return fmt.Sprintf("prompt-language=0x%02X", byte(pl))
}

// Outcome classifies the result of one command attempt.
type Outcome int

const (
	outcomeUnknown Outcome = iota
	Acked
	Nacked
	TimedOut
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Acked:
		return "acked"
	case Nacked:
		return "nacked"
	case TimedOut:
		return "timed out"
	case Malformed:
		return "malformed response"
	}
	return "unknown"
}

// Result is the terminal outcome of applying one setting in a batch.
type Result struct {
	Setting Setting
	Outcome Outcome
	Err     error // nil iff Outcome == Acked
}
