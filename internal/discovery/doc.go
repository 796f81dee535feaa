// Package discovery advertises a Puara module over mDNS and finds other
// modules on the local network.
//
// Modules publish an "_osc._udp" service named after their device name
// (e.g. "T-Stick_042"), on their local OSC port, with TXT records carrying
// the device kind and firmware version. A host can browse for that service
// to learn where to send OSC.
//
// # Usage Example
//
//	adv, err := discovery.Advertise(ctx, "T-Stick_042", 8000,
//	    map[string]string{"device": "T-Stick", "version": "220929"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
//	modules, err := discovery.NewScanner().ScanForModules(ctx)
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Modules must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
