package resolver

import "strings"

// PortNA is the port sentinel for ICMP variants, which carry no port. It is
// rewritten to "any" at flattening time.
const PortNA = "N/A"

// Service is a (protocol, port-expression) primitive. Protocol is one of
// TCP, UDP, ICMP, ICMPV6, or "any"; the port expression is a single port, a
// "lo-hi" range, a comma-joined list, "any", or the N/A sentinel.
type Service struct {
	Protocol string
	Port     string
}

// ServiceAny matches all traffic.
var ServiceAny = Service{Protocol: "any", Port: "any"}

// IsAny reports whether the service matches all traffic.
func (s Service) IsAny() bool {
	return s.Protocol == "any" && s.Port == "any"
}

// CombineServices merges like protocols to shrink the cartesian product at
// flattening time: TCP single ports join into one comma-separated primitive,
// UDP likewise. Range ports stay distinct. ICMP and ICMPV6 collapse to one
// occurrence each.
func CombineServices(services []Service) []Service {
	var result []Service
	var tcp, udp []string
	var icmp, icmp6 bool

	for _, svc := range services {
		if strings.Contains(svc.Port, "-") {
			result = append(result, svc)
			continue
		}
		switch svc.Protocol {
		case "TCP":
			tcp = appendUnique(tcp, svc.Port)
		case "UDP":
			udp = appendUnique(udp, svc.Port)
		case "ICMP":
			icmp = true
		case "ICMPV6":
			icmp6 = true
		}
	}

	if len(tcp) > 0 {
		result = append(result, Service{Protocol: "TCP", Port: strings.Join(tcp, ",")})
	}
	if len(udp) > 0 {
		result = append(result, Service{Protocol: "UDP", Port: strings.Join(udp, ",")})
	}
	if icmp {
		result = append(result, Service{Protocol: "ICMP", Port: PortNA})
	}
	if icmp6 {
		result = append(result, Service{Protocol: "ICMPV6", Port: PortNA})
	}
	return result
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
