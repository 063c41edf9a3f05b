package netutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// maxHosts bounds how many addresses one range may expand to (a /16).
const maxHosts = 1 << 16

// ExpandTargets takes a CIDR range (or a single IP) and a comma-separated
// port list, and returns a base URL for every host and port. Port 443 and
// any port ending in 443 use https; everything else uses http. Default
// ports are left out of the URL.
func ExpandTargets(cidr string, portsStr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		// Maybe it's a single IP, not a CIDR.
		ip = net.ParseIP(cidr)
		if ip == nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %q", cidr)
		}
		mask := net.CIDRMask(32, 32)
		if ip.To4() == nil {
			mask = net.CIDRMask(128, 128)
		}
		ipnet = &net.IPNet{IP: ip, Mask: mask}
	}

	ones, bits := ipnet.Mask.Size()
	if bits-ones > 16 {
		return nil, fmt.Errorf("range %s is too large (more than %d hosts)", cidr, maxHosts)
	}

	ports, err := parsePorts(portsStr)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		ports = []int{80}
	}

	var urls []string
	for ip := ip.Mask(ipnet.Mask); ipnet.Contains(ip); inc(ip) {
		// Skip network and broadcast addresses for /30 and larger.
		if bits-ones > 1 {
			if ip.Equal(ipnet.IP) {
				continue
			}
			if ip.Equal(broadcastAddr(ipnet)) {
				continue
			}
		}
		for _, port := range ports {
			urls = append(urls, hostURL(ip, port))
		}
	}

	return urls, nil
}

func hostURL(ip net.IP, port int) string {
	scheme := "http"
	if port%1000 == 443 {
		scheme = "https"
	}
	host := ip.String()
	if ip.To4() == nil {
		host = "[" + host + "]"
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func parsePorts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var ports []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, n)
	}
	return ports, nil
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

func broadcastAddr(n *net.IPNet) net.IP {
	ip := make(net.IP, len(n.IP))
	for i := range ip {
		ip[i] = n.IP[i] | ^n.Mask[i]
	}
	return ip
}
