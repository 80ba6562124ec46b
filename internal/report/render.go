package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/open-nexus/vmdbg/internal/pcap"
)

// WriteCounters renders the counter block that ends a summary run: a dash
// separator, then one "name: value" line per category in fixed order.
func WriteCounters(w io.Writer, c pcap.Counters) {
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "eth: %d\n", c.Eth)
	fmt.Fprintf(w, "arp_req: %d\n", c.ARPReq)
	fmt.Fprintf(w, "arp_rep: %d\n", c.ARPRep)
	fmt.Fprintf(w, "ipv4: %d\n", c.IPv4)
	fmt.Fprintf(w, "udp: %d\n", c.UDP)
	fmt.Fprintf(w, "tcp: %d\n", c.TCP)
	fmt.Fprintf(w, "tcp_syn: %d\n", c.TCPSyn)
	fmt.Fprintf(w, "tcp_synack: %d\n", c.TCPSynAck)
	fmt.Fprintf(w, "tcp_rst: %d\n", c.TCPRst)
}

// WriteJSON writes a report structure as indented JSON to an io.Writer.
func WriteJSON(w io.Writer, report any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
