// Package discovery finds esimd daemons on the local network over mDNS and
// lets esimd announce itself.
//
// Daemons advertise the "_esimd._tcp" service type. The TXT record carries
// the daemon version, the websocket path and whether TLS is on, so a
// discovered Daemon can produce the URL remote.Dial expects.
//
//	scanner := discovery.NewScanner()
//	daemons, err := scanner.Browse(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range daemons {
//	    fmt.Println(d.Instance, d.URL())
//	}
//
// Browsing requires multicast on the local segment and UDP port 5353
// open in the firewall.
package discovery
