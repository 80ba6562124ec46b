package pcap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// rawGlobalHeader builds a 24-byte classic pcap global header in the given
// byte order.
func rawGlobalHeader(order binary.ByteOrder, magic [4]byte, linkType uint32) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, order, uint16(2))  // version major
	binary.Write(&buf, order, uint16(4))  // version minor
	binary.Write(&buf, order, int32(0))   // thiszone
	binary.Write(&buf, order, uint32(0))  // sigfigs
	binary.Write(&buf, order, uint32(65535))
	binary.Write(&buf, order, linkType)
	return buf.Bytes()
}

// rawRecord builds a 16-byte record header plus payload.
func rawRecord(order binary.ByteOrder, tsSec, tsUsec uint32, data []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, order, tsSec)
	binary.Write(&buf, order, tsUsec)
	binary.Write(&buf, order, uint32(len(data)))
	binary.Write(&buf, order, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func writeRawFile(t *testing.T, chunks ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	var all []byte
	for _, c := range chunks {
		all = append(all, c...)
	}
	if err := os.WriteFile(path, all, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestOpenRejectsShortGlobalHeader(t *testing.T) {
	for _, size := range []int{0, 10, 23} {
		path := writeRawFile(t, make([]byte, size))
		_, err := Open(path)
		if err == nil || !strings.Contains(err.Error(), "short global header") {
			t.Errorf("size %d: got %v, want short global header error", size, err)
		}
	}
}

func TestOpenRejectsUnknownMagic(t *testing.T) {
	hdr := rawGlobalHeader(binary.LittleEndian, magicLittleEndian, 1)
	copy(hdr[0:4], []byte{0xde, 0xad, 0xbe, 0xef})
	path := writeRawFile(t, hdr)

	_, err := Open(path)
	var magicErr *UnsupportedMagicError
	if !errors.As(err, &magicErr) {
		t.Fatalf("got %v, want UnsupportedMagicError", err)
	}
	if magicErr.IsPcapng() || magicErr.IsNanosecond() {
		t.Errorf("unknown magic misclassified: pcapng=%v nano=%v", magicErr.IsPcapng(), magicErr.IsNanosecond())
	}
}

func TestOpenClassifiesPcapngAndNanosecondMagic(t *testing.T) {
	t.Run("pcapng", func(t *testing.T) {
		hdr := rawGlobalHeader(binary.LittleEndian, magicPcapng, 1)
		_, err := Open(writeRawFile(t, hdr))
		var magicErr *UnsupportedMagicError
		if !errors.As(err, &magicErr) || !magicErr.IsPcapng() {
			t.Fatalf("got %v, want pcapng UnsupportedMagicError", err)
		}
	})

	t.Run("nanosecond", func(t *testing.T) {
		hdr := rawGlobalHeader(binary.LittleEndian, magicNanoLittleEndian, 1)
		_, err := Open(writeRawFile(t, hdr))
		var magicErr *UnsupportedMagicError
		if !errors.As(err, &magicErr) || !magicErr.IsNanosecond() {
			t.Fatalf("got %v, want nanosecond UnsupportedMagicError", err)
		}
	})
}

func TestOpenRejectsNonEthernetLinkType(t *testing.T) {
	hdr := rawGlobalHeader(binary.LittleEndian, magicLittleEndian, 101)
	_, err := Open(writeRawFile(t, hdr))
	var linkErr *UnsupportedLinkTypeError
	if !errors.As(err, &linkErr) {
		t.Fatalf("got %v, want UnsupportedLinkTypeError", err)
	}
	if linkErr.LinkType != 101 {
		t.Errorf("LinkType = %d, want 101", linkErr.LinkType)
	}
}

func TestNextCleanEOF(t *testing.T) {
	hdr := rawGlobalHeader(binary.LittleEndian, magicLittleEndian, 1)
	r, err := Open(writeRawFile(t, hdr))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next on empty capture = %v, want io.EOF", err)
	}
}

func TestNextRoundTrip(t *testing.T) {
	for name, order := range map[string]binary.ByteOrder{
		"little-endian": binary.LittleEndian,
		"big-endian":    binary.BigEndian,
	} {
		t.Run(name, func(t *testing.T) {
			magic := magicLittleEndian
			if order == binary.BigEndian {
				magic = magicBigEndian
			}
			data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
			path := writeRawFile(t,
				rawGlobalHeader(order, magic, 1),
				rawRecord(order, 1700000000, 123456, data),
			)

			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer r.Close()
			if got := r.ByteOrderName(); got != name {
				t.Errorf("ByteOrderName = %q, want %q", got, name)
			}
			if major, minor := r.Version(); major != 2 || minor != 4 {
				t.Errorf("Version = %d.%d, want 2.4", major, minor)
			}
			if r.Snaplen() != 65535 {
				t.Errorf("Snaplen = %d, want 65535", r.Snaplen())
			}

			pkt, err := r.Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if pkt.TsSec != 1700000000 || pkt.TsUsec != 123456 {
				t.Errorf("timestamp = %d.%06d, want 1700000000.123456", pkt.TsSec, pkt.TsUsec)
			}
			if !bytes.Equal(pkt.Data, data) {
				t.Errorf("data = %x, want %x", pkt.Data, data)
			}

			if _, err := r.Next(); err != io.EOF {
				t.Errorf("second Next = %v, want io.EOF", err)
			}
		})
	}
}

func TestNextRejectsTruncatedRecordHeader(t *testing.T) {
	path := writeRawFile(t,
		rawGlobalHeader(binary.LittleEndian, magicLittleEndian, 1),
		make([]byte, 8), // half a record header
	)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	_, err = r.Next()
	if err == nil || err == io.EOF || !strings.Contains(err.Error(), "short packet header") {
		t.Errorf("got %v, want short packet header error", err)
	}
}

func TestNextRejectsTruncatedPacketData(t *testing.T) {
	rec := rawRecord(binary.LittleEndian, 0, 0, make([]byte, 10))
	rec = rec[:len(rec)-6] // drop the tail of the payload
	path := writeRawFile(t,
		rawGlobalHeader(binary.LittleEndian, magicLittleEndian, 1),
		rec,
	)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	_, err = r.Next()
	if err == nil || err == io.EOF || !strings.Contains(err.Error(), "short packet data") {
		t.Errorf("got %v, want short packet data error", err)
	}
}
