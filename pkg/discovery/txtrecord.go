package discovery

import (
	"fmt"
	"strings"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeBadgeTXT creates the TXT records for a badge.
func EncodeBadgeTXT(info *BadgeInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyAddress] = info.Address.String()
	txt[TXTKeyVersion] = info.Version
	if txt[TXTKeyVersion] == "" {
		txt[TXTKeyVersion] = ProtocolVersion
	}

	if info.State != "" {
		txt[TXTKeyState] = info.State
	}
	if !info.Partner.IsZero() {
		txt[TXTKeyPartner] = info.Partner.String()
	}

	return txt
}

// DecodeBadgeTXT parses badge TXT records. Name and Port are not part of
// the record and stay zero.
func DecodeBadgeTXT(txt TXTRecordMap) (*BadgeInfo, error) {
	info := &BadgeInfo{}

	addr, ok := txt[TXTKeyAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAddress)
	}
	a, err := wire.ParseAddress(addr)
	if err != nil || a.IsZero() || a.IsBroadcast() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	info.Address = a

	info.Version, ok = txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	// Optional fields
	info.State = txt[TXTKeyState]
	if p, ok := txt[TXTKeyPartner]; ok {
		partner, err := wire.ParseAddress(p)
		if err != nil {
			return nil, fmt.Errorf("%w: partner %q", ErrInvalidAddress, p)
		}
		info.Partner = partner
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// InstanceName returns the default instance name for a badge address,
// "badge-" followed by the last three address bytes.
func InstanceName(addr wire.Address) string {
	return fmt.Sprintf("badge-%02x%02x%02x", addr[3], addr[4], addr[5])
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: %d characters", ErrInvalidName, len(name))
	}
	return nil
}
