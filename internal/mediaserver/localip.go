package mediaserver

import "net"

// loopbackFallback is returned when no usable interface is found; the
// caller is expected to log a warning, since a URL built from it is only
// reachable from the local machine and a Cast receiver on the LAN can't
// load media from it.
const loopbackFallback = "127.0.0.1"

// primaryIPv4 returns the first non-loopback IPv4 address of an up
// interface, adapted from the corpus's getPrimaryInterfaceIP.
func primaryIPv4() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return loopbackFallback
	}

	for _, iface := range interfaces {
		if addr := firstIPv4(iface); addr != "" {
			return addr
		}
	}
	return loopbackFallback
}

// firstIPv4 returns the first non-loopback IPv4 address bound to iface, or
// "" if it carries none (or isn't up).
func firstIPv4(iface net.Interface) string {
	if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
		return ""
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
