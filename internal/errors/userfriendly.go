package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/open-nexus/vmdbg/internal/pcap"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapPCAPError wraps capture-file errors with user-friendly context
func WrapPCAPError(err error, path string) error {
	if err == nil {
		return nil
	}

	ufe := UserFriendlyError{
		Message: fmt.Sprintf("Failed to read capture file %s", path),
		Err:     err,
	}

	var magicErr *pcap.UnsupportedMagicError
	var linkErr *pcap.UnsupportedLinkTypeError
	switch {
	case stderrors.As(err, &magicErr):
		switch {
		case magicErr.IsPcapng():
			ufe.Reason = "File is in pcapng format"
			ufe.Hint = "Only the classic libpcap format is supported"
			ufe.Try = fmt.Sprintf("tshark -F pcap -r %s -w converted.pcap", path)
		case magicErr.IsNanosecond():
			ufe.Reason = "File uses nanosecond timestamps"
			ufe.Hint = "Re-capture with microsecond resolution, or convert the file"
			ufe.Try = fmt.Sprintf("tshark -F pcap -r %s -w converted.pcap", path)
		default:
			ufe.Reason = "File does not start with a classic pcap magic number"
			ufe.Hint = "The file may be truncated or not a capture at all"
		}
	case stderrors.As(err, &linkErr):
		ufe.Reason = fmt.Sprintf("Capture was taken on link type %d", linkErr.LinkType)
		ufe.Hint = "Only Ethernet captures (link type 1) from the OS2VM bridge are supported"
	default:
		ufe.Reason = "The capture appears truncated or corrupt"
	}

	return ufe
}

// WrapConfigError wraps filter-profile loading errors with user-friendly context
func WrapConfigError(err error, path string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to load filter profiles from %s", path),
		Reason:  "The profile file could not be read or parsed",
		Hint:    "Profiles are YAML: a top-level 'profiles' map of name to settings",
		Err:     err,
	}
}
