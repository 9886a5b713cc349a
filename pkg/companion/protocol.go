package companion

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Line protocol constants.
const (
	Delimiter   = '\n'
	MaxLineSize = 2048
)

// Reply and notification prefixes.
const (
	ReplyPong        = "pong"
	ReplyOK          = "OK"
	PrefixError      = "ERR:"
	PrefixPartnerKey = "PARTNER_KEY:"
	PrefixRelayURL   = "RELAY_URL:"
	PrefixState      = "STATE:"
	PrefixStatus     = "STATUS:"
	prefixBitmask    = "BITMASK:"
	prefixKey        = "KEY:"
	prefixURL        = "URL:"
	keywordPing      = "ping"
	keywordStatus    = "STATUS"
	keywordReset     = "RESET"
	noPartnerField   = "-"
)

// Protocol errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrEmptyArgument  = errors.New("empty argument")
	ErrInvalidHex     = errors.New("invalid hex bitmask")
)

// CommandKind identifies a companion command.
type CommandKind uint8

// Command kinds.
const (
	CmdPing CommandKind = iota
	CmdBitmask
	CmdKey
	CmdURL
	CmdStatus
	CmdReset
)

var commandNames = [...]string{"PING", "BITMASK", "KEY", "URL", "STATUS", "RESET"}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("COMMAND(%d)", uint8(k))
}

// Command is a parsed command line.
type Command struct {
	Kind CommandKind

	// Arg is the text argument of KEY and URL.
	Arg string

	// Bitmask is the decoded argument of BITMASK.
	Bitmask []byte
}

// ParseCommand parses one line without its delimiter. Keywords are
// case-insensitive; arguments are kept verbatim.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r")

	switch {
	case strings.EqualFold(line, keywordPing):
		return Command{Kind: CmdPing}, nil
	case strings.EqualFold(line, keywordStatus):
		return Command{Kind: CmdStatus}, nil
	case strings.EqualFold(line, keywordReset):
		return Command{Kind: CmdReset}, nil
	}

	name, arg, ok := strings.Cut(line, ":")
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	name = strings.ToUpper(name) + ":"

	switch name {
	case prefixBitmask:
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return Command{}, fmt.Errorf("%w: bitmask", ErrEmptyArgument)
		}
		b, err := hex.DecodeString(arg)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrInvalidHex, err)
		}
		return Command{Kind: CmdBitmask, Bitmask: b}, nil
	case prefixKey, prefixURL:
		if arg == "" {
			return Command{}, fmt.Errorf("%w: %s", ErrEmptyArgument, strings.TrimSuffix(name, ":"))
		}
		kind := CmdKey
		if name == prefixURL {
			kind = CmdURL
		}
		return Command{Kind: kind, Arg: arg}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// FormatCommand renders c as a line without delimiter.
func FormatCommand(c Command) string {
	switch c.Kind {
	case CmdPing:
		return keywordPing
	case CmdBitmask:
		return prefixBitmask + hex.EncodeToString(c.Bitmask)
	case CmdKey:
		return prefixKey + c.Arg
	case CmdURL:
		return prefixURL + c.Arg
	case CmdStatus:
		return keywordStatus
	default:
		return keywordReset
	}
}

// FormatError renders an error reply.
func FormatError(err error) string {
	return PrefixError + err.Error()
}

// FormatPartnerKey renders a PARTNER_KEY notification.
func FormatPartnerKey(key string) string {
	return PrefixPartnerKey + key
}

// FormatRelayURL renders a RELAY_URL notification.
func FormatRelayURL(url string) string {
	return PrefixRelayURL + url
}

// FormatState renders a STATE notification. The partner is included when
// it is not zero.
func FormatState(state wire.State, partner wire.Address) string {
	if partner.IsZero() {
		return PrefixState + state.String()
	}
	return PrefixState + state.String() + ":" + partner.String()
}

// FormatStatus renders the STATUS reply:
// STATUS:<state>:<partner|->:<similarity>:<zone>.
func FormatStatus(s pairing.Status) string {
	partner := noPartnerField
	if s.Partner != nil {
		partner = s.Partner.String()
	}
	return fmt.Sprintf("%s%s:%s:%d:%s", PrefixStatus, s.State, partner, s.Similarity, s.Zone)
}
