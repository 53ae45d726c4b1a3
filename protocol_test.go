package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseNoiseCancelling(t *testing.T) {
	tests := []struct {
		in      string
		want    NoiseCancelling
		wantErr bool
	}{
		{in: "high", want: NCHigh},
		{in: "low", want: NCLow},
		{in: "off", want: NCOff},
		{in: "medium", wantErr: true},
		{in: "HIGH", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNoiseCancelling(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNoiseCancelling(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseNoiseCancelling(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAutoOff(t *testing.T) {
	tests := []struct {
		in      string
		want    AutoOff
		wantErr bool
	}{
		{in: "never", want: AutoOffNever},
		{in: "5", want: 5},
		{in: "20", want: 20},
		{in: "40", want: 40},
		{in: "60", want: 60},
		{in: "180", want: 180},
		{in: "0", wantErr: true},   // numeric zero is not in the domain; only "never" disables
		{in: "50", wantErr: true},  // close to 40/60 but not enumerated
		{in: "181", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "never5", wantErr: true},
		{in: " 5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAutoOff(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAutoOff(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAutoOff(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePromptLanguage(t *testing.T) {
	for tok := range plByToken {
		if _, err := ParsePromptLanguage(tok); err != nil {
			t.Errorf("ParsePromptLanguage(%q) error: %v", tok, err)
		}
	}
	for _, bad := range []string{"english", "EN", "xx", ""} {
		if _, err := ParsePromptLanguage(bad); err == nil {
			t.Errorf("ParsePromptLanguage(%q) accepted invalid token", bad)
		}
	}
}

func TestNameTruncation(t *testing.T) {
	long := strings.Repeat("a", MaxNameLen+7)
	name, truncated := NewName(long)
	if !truncated {
		t.Fatal("NewName() did not report truncation")
	}
	_, payload := name.command()
	if len(payload) != MaxNameLen {
		t.Errorf("payload length = %d, want %d", len(payload), MaxNameLen)
	}

	name, truncated = NewName("QC35 II")
	if truncated {
		t.Fatal("NewName() reported truncation for a short name")
	}
	if _, payload := name.command(); string(payload) != "QC35 II" {
		t.Errorf("payload = %q, want %q", payload, "QC35 II")
	}
}

// Every enum variant maps to exactly one fixed opcode/payload pair.
func TestSettingCommands(t *testing.T) {
	mustName := func(s string) Name {
		n, _ := NewName(s)
		return n
	}
	tests := []struct {
		setting Setting
		opcode  byte
		payload []byte
	}{
		{mustName("hat"), opName, []byte("hat")},
		{NCHigh, opNoiseCancel, []byte{0x01}},
		{NCLow, opNoiseCancel, []byte{0x03}},
		{NCOff, opNoiseCancel, []byte{0x00}},
		{AutoOffNever, opAutoOff, []byte{0}},
		{AutoOff(5), opAutoOff, []byte{5}},
		{AutoOff(180), opAutoOff, []byte{180}},
		{PLOff, opPromptLanguage, []byte{0x00}},
		{plByToken["en"], opPromptLanguage, []byte{0x01}},
		{plByToken["sv"], opPromptLanguage, []byte{0x0B}},
	}
	for _, tt := range tests {
		t.Run(tt.setting.String(), func(t *testing.T) {
			opcode, payload := tt.setting.command()
			if opcode != tt.opcode {
				t.Errorf("opcode = 0x%02X, want 0x%02X", opcode, tt.opcode)
			}
			if !bytes.Equal(payload, tt.payload) {
				t.Errorf("payload = %v, want %v", payload, tt.payload)
			}
		})
	}
}
