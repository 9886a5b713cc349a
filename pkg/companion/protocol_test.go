package companion

import (
	"errors"
	"testing"

	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"ping", "ping", Command{Kind: CmdPing}},
		{"ping upper", "PING", Command{Kind: CmdPing}},
		{"ping with cr", "ping\r", Command{Kind: CmdPing}},
		{"status", "status", Command{Kind: CmdStatus}},
		{"reset", "RESET", Command{Kind: CmdReset}},
		{"bitmask", "BITMASK:f00f", Command{Kind: CmdBitmask, Bitmask: []byte{0xF0, 0x0F}}},
		{"bitmask lower keyword", "bitmask: FF ", Command{Kind: CmdBitmask, Bitmask: []byte{0xFF}}},
		{"key", "KEY:abc:def", Command{Kind: CmdKey, Arg: "abc:def"}},
		{"url", "url:https://relay.example/r/1", Command{Kind: CmdURL, Arg: "https://relay.example/r/1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"hello", ErrUnknownCommand},
		{"FOO:bar", ErrUnknownCommand},
		{"BITMASK:", ErrEmptyArgument},
		{"BITMASK:xyz", ErrInvalidHex},
		{"BITMASK:abc", ErrInvalidHex},
		{"KEY:", ErrEmptyArgument},
		{"URL:", ErrEmptyArgument},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFormatCommandRoundTrip(t *testing.T) {
	cmds := []Command{
		{Kind: CmdPing},
		{Kind: CmdBitmask, Bitmask: []byte{0x01, 0xAB}},
		{Kind: CmdKey, Arg: "key"},
		{Kind: CmdURL, Arg: "https://x"},
		{Kind: CmdStatus},
		{Kind: CmdReset},
	}
	for _, c := range cmds {
		got, err := ParseCommand(FormatCommand(c))
		require.NoError(t, err, c.Kind.String())
		assert.Equal(t, c, got)
	}
}

func TestFormatNotifications(t *testing.T) {
	partner := wire.Address{0x24, 0x6f, 0x28, 0x00, 0x00, 0x01}

	assert.Equal(t, "PARTNER_KEY:abc", FormatPartnerKey("abc"))
	assert.Equal(t, "RELAY_URL:https://x", FormatRelayURL("https://x"))
	assert.Equal(t, "STATE:SEARCHING", FormatState(wire.StateSearching, wire.ZeroAddress))
	assert.Equal(t, "STATE:PAIRED:"+partner.String(), FormatState(wire.StatePaired, partner))
	assert.Equal(t, "ERR:unknown command", FormatError(ErrUnknownCommand))
}

func TestFormatStatus(t *testing.T) {
	partner := wire.Address{0x24, 0x6f, 0x28, 0x00, 0x00, 0x01}

	st := pairing.Status{State: "SEARCHING", Zone: "unknown"}
	assert.Equal(t, "STATUS:SEARCHING:-:0:unknown", FormatStatus(st))

	st = pairing.Status{State: "PAIRED", Partner: &partner, Similarity: 75, Zone: "near"}
	assert.Equal(t, "STATUS:PAIRED:"+partner.String()+":75:near", FormatStatus(st))
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "BITMASK", CmdBitmask.String())
	assert.Equal(t, "COMMAND(99)", CommandKind(99).String())
}
