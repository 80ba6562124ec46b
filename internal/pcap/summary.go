package pcap

import (
	"fmt"
	"io"
	"strings"

	"github.com/open-nexus/vmdbg/internal/logging"
)

// Counters tracks per-category packet totals for a capture. The JSON field
// names double as the report labels.
type Counters struct {
	Eth       int `json:"eth"`
	ARPReq    int `json:"arp_req"`
	ARPRep    int `json:"arp_rep"`
	IPv4      int `json:"ipv4"`
	UDP       int `json:"udp"`
	TCP       int `json:"tcp"`
	TCPSyn    int `json:"tcp_syn"`
	TCPSynAck int `json:"tcp_synack"`
	TCPRst    int `json:"tcp_rst"`
}

// Summary is the result of one pass over a capture.
type Summary struct {
	Counters Counters `json:"counters"`
	Packets  int      `json:"packets"`
	Printed  int      `json:"printed"`
}

// Options controls summarization. Port filters gate which detail lines are
// printed; they never affect counters. Limit bounds the total number of
// detail lines across all categories.
type Options struct {
	TCPPorts map[uint16]struct{}
	UDPPorts map[uint16]struct{}
	Limit    int
	Log      *logging.Logger
}

func (o Options) debugf(format string, v ...interface{}) {
	if o.Log != nil {
		o.Log.Debug(format, v...)
	}
}

// Summarize consumes the reader one packet at a time, printing detail lines
// to w and accumulating counters. Reader errors are returned as-is; the
// caller treats them as fatal.
func Summarize(r *Reader, opts Options, w io.Writer) (*Summary, error) {
	sum := &Summary{}
	for {
		pkt, err := r.Next()
		if err == io.EOF {
			return sum, nil
		}
		if err != nil {
			return nil, err
		}
		sum.Packets++
		classify(pkt, opts, w, sum)
	}
}

// printf emits one detail line unless the print budget is exhausted.
func (s *Summary) printf(w io.Writer, limit int, format string, v ...interface{}) {
	if s.Printed >= limit {
		return
	}
	fmt.Fprintf(w, format+"\n", v...)
	s.Printed++
}

func classify(pkt Packet, opts Options, w io.Writer, sum *Summary) {
	eth, ok := ParseEthernet(pkt.Data)
	if !ok {
		opts.debugf("skip: frame of %d bytes shorter than ethernet header", len(pkt.Data))
		return
	}
	sum.Counters.Eth++

	switch eth.EtherType {
	case EtherTypeARP:
		classifyARP(eth.Payload, opts, w, sum)
	case EtherTypeIPv4:
		classifyIPv4(eth.Payload, opts, w, sum)
	}
}

func classifyARP(payload []byte, opts Options, w io.Writer, sum *Summary) {
	arp, ok := ParseARP(payload)
	if !ok {
		opts.debugf("skip: arp payload not Ethernet/IPv4 shaped")
		return
	}
	switch arp.Operation {
	case ARPOpRequest:
		sum.Counters.ARPReq++
		sum.printf(w, opts.Limit, "ARP who-has %s tell %s (%s)",
			IPString(arp.TargetIP), IPString(arp.SenderIP), MACString(arp.SenderMAC))
	case ARPOpReply:
		sum.Counters.ARPRep++
		sum.printf(w, opts.Limit, "ARP reply %s is-at %s",
			IPString(arp.SenderIP), MACString(arp.SenderMAC))
	}
}

func classifyIPv4(payload []byte, opts Options, w io.Writer, sum *Summary) {
	ip, ok := ParseIPv4(payload)
	if !ok {
		opts.debugf("skip: invalid ipv4 header")
		return
	}
	sum.Counters.IPv4++

	switch ip.Protocol {
	case IPProtoUDP:
		udp, ok := ParseUDP(ip.Payload)
		if !ok {
			opts.debugf("skip: truncated udp segment")
			return
		}
		sum.Counters.UDP++
		if !portMatch(opts.UDPPorts, udp.SrcPort, udp.DstPort) {
			return
		}
		sum.printf(w, opts.Limit, "UDP %s:%d -> %s:%d len=%d",
			IPString(ip.SrcIP), udp.SrcPort, IPString(ip.DstIP), udp.DstPort, len(ip.Payload))

	case IPProtoTCP:
		tcp, ok := ParseTCP(ip.Payload)
		if !ok {
			opts.debugf("skip: truncated tcp segment")
			return
		}
		sum.Counters.TCP++
		syn := tcp.Flags&TCPFlagSYN != 0
		ack := tcp.Flags&TCPFlagACK != 0
		rst := tcp.Flags&TCPFlagRST != 0
		// Handshake/reset counters track global traffic shape and are
		// deliberately not subject to the port filter.
		if syn && !ack {
			sum.Counters.TCPSyn++
		}
		if syn && ack {
			sum.Counters.TCPSynAck++
		}
		if rst {
			sum.Counters.TCPRst++
		}
		if !portMatch(opts.TCPPorts, tcp.SrcPort, tcp.DstPort) {
			return
		}
		sum.printf(w, opts.Limit, "TCP %s:%d -> %s:%d %s",
			IPString(ip.SrcIP), tcp.SrcPort, IPString(ip.DstIP), tcp.DstPort, flagString(tcp.Flags))
	}
}

// portMatch reports whether a detail line passes the port filter. An empty
// filter keeps everything.
func portMatch(ports map[uint16]struct{}, src, dst uint16) bool {
	if len(ports) == 0 {
		return true
	}
	if _, ok := ports[src]; ok {
		return true
	}
	_, ok := ports[dst]
	return ok
}

// flagString renders set SYN/ACK/RST bits as a comma-joined list, falling
// back to the raw byte in hex when none of them is set.
func flagString(flags uint8) string {
	var names []string
	if flags&TCPFlagSYN != 0 {
		names = append(names, "SYN")
	}
	if flags&TCPFlagACK != 0 {
		names = append(names, "ACK")
	}
	if flags&TCPFlagRST != 0 {
		names = append(names, "RST")
	}
	if len(names) == 0 {
		return fmt.Sprintf("flags=0x%02x", flags)
	}
	return strings.Join(names, ",")
}
