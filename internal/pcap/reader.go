package pcap

// Classic libpcap capture file reading

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

var (
	magicLittleEndian = [4]byte{0xd4, 0xc3, 0xb2, 0xa1}
	magicBigEndian    = [4]byte{0xa1, 0xb2, 0xc3, 0xd4}

	magicNanoLittleEndian = [4]byte{0x4d, 0x3c, 0xb2, 0xa1}
	magicNanoBigEndian    = [4]byte{0xa1, 0xb2, 0x3c, 0x4d}
	magicPcapng           = [4]byte{0x0a, 0x0d, 0x0d, 0x0a}
)

// linkTypeEthernet is the only link layer the OS2VM bridge produces.
const linkTypeEthernet = 1

// Packet is a single captured record from a pcap file.
type Packet struct {
	TsSec  uint32 `json:"ts_sec"`
	TsUsec uint32 `json:"ts_usec"`
	Data   []byte `json:"-"`
}

// UnsupportedMagicError reports a capture whose magic number is not
// classic pcap.
type UnsupportedMagicError struct {
	Magic [4]byte
}

func (e *UnsupportedMagicError) Error() string {
	return fmt.Sprintf("unsupported magic %02x%02x%02x%02x (only classic pcap)",
		e.Magic[0], e.Magic[1], e.Magic[2], e.Magic[3])
}

// IsPcapng reports whether the magic belongs to a pcapng section header.
func (e *UnsupportedMagicError) IsPcapng() bool {
	return e.Magic == magicPcapng
}

// IsNanosecond reports whether the magic belongs to a nanosecond-resolution
// classic capture.
func (e *UnsupportedMagicError) IsNanosecond() bool {
	return e.Magic == magicNanoLittleEndian || e.Magic == magicNanoBigEndian
}

// UnsupportedLinkTypeError reports a capture taken on a non-Ethernet link.
type UnsupportedLinkTypeError struct {
	LinkType uint32
}

func (e *UnsupportedLinkTypeError) Error() string {
	return fmt.Sprintf("unsupported link type %d (expected Ethernet=1)", e.LinkType)
}

// Reader iterates over the packet records of a classic pcap file. It is
// strictly single-pass: each Next call reads exactly one record from disk.
type Reader struct {
	f     *os.File
	order binary.ByteOrder

	versionMajor uint16
	versionMinor uint16
	snaplen      uint32
}

// Open opens a classic pcap file and validates its global header. Any
// structural problem (short header, unknown magic, non-Ethernet link type)
// is an error; the caller treats these as fatal.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	var hdr [24]byte
	if n, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("short global header: read %d of 24 bytes", n)
	}

	var magic [4]byte
	copy(magic[:], hdr[0:4])

	var order binary.ByteOrder
	switch magic {
	case magicLittleEndian:
		order = binary.LittleEndian
	case magicBigEndian:
		order = binary.BigEndian
	default:
		f.Close()
		return nil, &UnsupportedMagicError{Magic: magic}
	}

	r := &Reader{
		f:            f,
		order:        order,
		versionMajor: order.Uint16(hdr[4:6]),
		versionMinor: order.Uint16(hdr[6:8]),
		snaplen:      order.Uint32(hdr[16:20]),
	}

	if network := order.Uint32(hdr[20:24]); network != linkTypeEthernet {
		f.Close()
		return nil, &UnsupportedLinkTypeError{LinkType: network}
	}

	return r, nil
}

// Next reads the next packet record. It returns io.EOF when the file ends
// cleanly at a record-header boundary; any partial read is an error because
// the file is truncated.
func (r *Reader) Next() (Packet, error) {
	var hdr [16]byte
	n, err := io.ReadFull(r.f, hdr[:])
	if err == io.EOF {
		return Packet{}, io.EOF
	}
	if err != nil {
		return Packet{}, fmt.Errorf("short packet header: read %d of 16 bytes", n)
	}

	inclLen := r.order.Uint32(hdr[8:12])
	data := make([]byte, inclLen)
	if n, err := io.ReadFull(r.f, data); err != nil {
		return Packet{}, fmt.Errorf("short packet data: read %d of %d bytes", n, inclLen)
	}

	return Packet{
		TsSec:  r.order.Uint32(hdr[0:4]),
		TsUsec: r.order.Uint32(hdr[4:8]),
		Data:   data,
	}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Version returns the capture format version from the global header.
func (r *Reader) Version() (major, minor uint16) {
	return r.versionMajor, r.versionMinor
}

// Snaplen returns the snapshot length recorded in the global header.
func (r *Reader) Snaplen() uint32 {
	return r.snaplen
}

// ByteOrderName describes the byte order detected from the magic number.
func (r *Reader) ByteOrderName() string {
	if r.order == binary.BigEndian {
		return "big-endian"
	}
	return "little-endian"
}
