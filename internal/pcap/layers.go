package pcap

// Fixed-offset decoders for the layers the OS2VM network stack speaks:
// Ethernet, ARP, IPv4 and TCP/UDP. Each decoder returns ok=false when the
// input is too short or a field-value gate fails; the caller skips the
// packet at that layer instead of aborting.

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// EtherType values dispatched by the summarizer.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

// ARP operation codes.
const (
	ARPOpRequest uint16 = 1
	ARPOpReply   uint16 = 2
)

// IPv4 protocol numbers.
const (
	IPProtoTCP uint8 = 6
	IPProtoUDP uint8 = 17
)

// TCP flag bits (byte 13 of the TCP header).
const (
	TCPFlagSYN uint8 = 0x02
	TCPFlagRST uint8 = 0x04
	TCPFlagACK uint8 = 0x10
)

// EthernetFrame is a view into a captured frame. The MAC and payload slices
// alias the packet buffer and are only valid while the packet is.
type EthernetFrame struct {
	Dst       []byte
	Src       []byte
	EtherType uint16
	Payload   []byte
}

// ParseEthernet splits a raw frame into its Ethernet II fields. Frames
// shorter than the 14-byte header are rejected.
func ParseEthernet(frame []byte) (EthernetFrame, bool) {
	if len(frame) < 14 {
		return EthernetFrame{}, false
	}
	return EthernetFrame{
		Dst:       frame[0:6],
		Src:       frame[6:12],
		EtherType: binary.BigEndian.Uint16(frame[12:14]),
		Payload:   frame[14:],
	}, true
}

// ARPMessage is a decoded Ethernet/IPv4 ARP payload.
type ARPMessage struct {
	Operation    uint16
	HardwareType uint16
	SenderMAC    []byte
	SenderIP     []byte
	TargetMAC    []byte
	TargetIP     []byte
}

// ParseARP decodes an ARP payload. Only the standard Ethernet/IPv4 shape
// (htype=1, ptype=0x0800, hlen=6, plen=4) is recognized.
func ParseARP(p []byte) (ARPMessage, bool) {
	if len(p) < 28 {
		return ARPMessage{}, false
	}
	htype := binary.BigEndian.Uint16(p[0:2])
	ptype := binary.BigEndian.Uint16(p[2:4])
	hlen := p[4]
	plen := p[5]
	if htype != 1 || ptype != EtherTypeIPv4 || hlen != 6 || plen != 4 {
		return ARPMessage{}, false
	}
	return ARPMessage{
		Operation:    binary.BigEndian.Uint16(p[6:8]),
		HardwareType: htype,
		SenderMAC:    p[8:14],
		SenderIP:     p[14:18],
		TargetMAC:    p[18:24],
		TargetIP:     p[24:28],
	}, true
}

// IPv4Header is a view into an IPv4 packet. Payload starts after the header
// including any options.
type IPv4Header struct {
	Protocol uint8
	SrcIP    []byte
	DstIP    []byte
	Payload  []byte
}

// ParseIPv4 decodes an IPv4 header. The version nibble must be 4 and the
// declared header length must be at least 20 bytes and covered by the
// captured buffer.
func ParseIPv4(p []byte) (IPv4Header, bool) {
	if len(p) < 20 {
		return IPv4Header{}, false
	}
	verIHL := p[0]
	version := verIHL >> 4
	headerLen := int(verIHL&0x0F) * 4
	if version != 4 || headerLen < 20 || len(p) < headerLen {
		return IPv4Header{}, false
	}
	return IPv4Header{
		Protocol: p[9],
		SrcIP:    p[12:16],
		DstIP:    p[16:20],
		Payload:  p[headerLen:],
	}, true
}

// UDPHeader carries the ports of a UDP segment. Length and checksum are
// intentionally ignored.
type UDPHeader struct {
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// ParseUDP decodes a UDP segment.
func ParseUDP(p []byte) (UDPHeader, bool) {
	if len(p) < 8 {
		return UDPHeader{}, false
	}
	return UDPHeader{
		SrcPort: binary.BigEndian.Uint16(p[0:2]),
		DstPort: binary.BigEndian.Uint16(p[2:4]),
		Payload: p[8:],
	}, true
}

// TCPHeader carries the ports and whole flags byte of a TCP segment.
type TCPHeader struct {
	SrcPort uint16
	DstPort uint16
	Flags   uint8
	Payload []byte
}

// ParseTCP decodes a TCP segment. The data offset must be at least 20 bytes
// and must not exceed the segment length.
func ParseTCP(p []byte) (TCPHeader, bool) {
	if len(p) < 20 {
		return TCPHeader{}, false
	}
	offset := int(p[12]>>4) * 4
	if offset < 20 || len(p) < offset {
		return TCPHeader{}, false
	}
	return TCPHeader{
		SrcPort: binary.BigEndian.Uint16(p[0:2]),
		DstPort: binary.BigEndian.Uint16(p[2:4]),
		Flags:   p[13],
		Payload: p[offset:],
	}, true
}

// MACString renders a MAC address as lowercase colon-separated hex.
func MACString(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02x", x)
	}
	return strings.Join(parts, ":")
}

// IPString renders an IPv4 address in dotted decimal.
func IPString(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ".")
}
