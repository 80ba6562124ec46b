package pcap

import (
	"fmt"
	"io"
)

// DumpOptions controls which transport packets pcap-dump prints.
type DumpOptions struct {
	Port        uint16 // 0 selects every TCP/UDP packet
	Max         int
	ShowPayload bool
}

// Dump walks the capture and prints one header line per matching TCP/UDP
// packet, optionally followed by a hex dump of the transport payload. It
// returns the number of packets dumped.
func Dump(r *Reader, opts DumpOptions, w io.Writer) (int, error) {
	dumped := 0
	for dumped < opts.Max {
		pkt, err := r.Next()
		if err == io.EOF {
			return dumped, nil
		}
		if err != nil {
			return dumped, err
		}

		eth, ok := ParseEthernet(pkt.Data)
		if !ok || eth.EtherType != EtherTypeIPv4 {
			continue
		}
		ip, ok := ParseIPv4(eth.Payload)
		if !ok {
			continue
		}

		var (
			transport string
			srcPort   uint16
			dstPort   uint16
			extra     string
			payload   []byte
		)
		switch ip.Protocol {
		case IPProtoUDP:
			udp, ok := ParseUDP(ip.Payload)
			if !ok {
				continue
			}
			transport = "UDP"
			srcPort, dstPort = udp.SrcPort, udp.DstPort
			payload = udp.Payload
			extra = fmt.Sprintf("len=%d", len(udp.Payload))
		case IPProtoTCP:
			tcp, ok := ParseTCP(ip.Payload)
			if !ok {
				continue
			}
			transport = "TCP"
			srcPort, dstPort = tcp.SrcPort, tcp.DstPort
			payload = tcp.Payload
			extra = fmt.Sprintf("flags=0x%02x len=%d", tcp.Flags, len(tcp.Payload))
		default:
			continue
		}

		if opts.Port != 0 && srcPort != opts.Port && dstPort != opts.Port {
			continue
		}

		dumped++
		fmt.Fprintf(w, "#%d %d.%06d %s %s:%d -> %s:%d %s\n",
			dumped, pkt.TsSec, pkt.TsUsec, transport,
			IPString(ip.SrcIP), srcPort, IPString(ip.DstIP), dstPort, extra)
		if opts.ShowPayload && len(payload) > 0 {
			fmt.Fprint(w, HexDump(payload, 16))
		}
	}
	return dumped, nil
}
