package resolver

import (
	"strings"

	"github.com/netmigrate/swmx/pkg/dashboard"
)

// FlatRule is one wire-form MX rule plus the zone tags that drive
// classification.
type FlatRule struct {
	Rule    dashboard.FirewallRule
	SrcZone string
	DstZone string
}

// Flatten expands a resolved rule into the cartesian product of its source
// tokens, destination tokens, and services: one MX rule per triple.
func Flatten(acl *AclRule) []FlatRule {
	srcPort := acl.SrcPort
	if srcPort == "" {
		srcPort = "any"
	}

	var out []FlatRule
	for _, src := range acl.Src.Tokens() {
		for _, dst := range acl.Dst.Tokens() {
			for _, svc := range acl.Services {
				out = append(out, FlatRule{
					Rule: dashboard.FirewallRule{
						Comment:  acl.Comment,
						Policy:   acl.Action,
						Protocol: wireProtocol(svc.Protocol),
						SrcPort:  srcPort,
						SrcCidr:  src,
						DestCidr: dst,
						DestPort: wirePort(svc.Port),
					},
					SrcZone: acl.SrcZone,
					DstZone: acl.DstZone,
				})
			}
		}
	}
	return out
}

func wireProtocol(protocol string) string {
	switch protocol {
	case "ICMP":
		return "icmp"
	case "ICMPV6":
		return "icmp6"
	default:
		return strings.ToLower(protocol)
	}
}

func wirePort(port string) string {
	if port == PortNA || port == "" {
		return "any"
	}
	return port
}

// ZoneClassifier decides which ruleset a zone pair routes to. Satisfied by
// settings.Profile.
type ZoneClassifier interface {
	IsInbound(zone string) bool
	IsSite2Site(zone string) bool
}

// RuleSets holds the three MX rulesets a run writes.
type RuleSets struct {
	Outbound   []dashboard.FirewallRule
	Inbound    []dashboard.FirewallRule
	SiteToSite []dashboard.FirewallRule
}

// Classify routes each flattened rule by zone. Without mapping mode every
// rule lands in the outbound L3 ruleset.
func Classify(rules []FlatRule, zones ZoneClassifier, mapping bool) RuleSets {
	var sets RuleSets
	for _, r := range rules {
		switch {
		case !mapping:
			sets.Outbound = append(sets.Outbound, r.Rule)
		case zones.IsInbound(r.SrcZone):
			sets.Inbound = append(sets.Inbound, r.Rule)
		case zones.IsSite2Site(r.SrcZone) || zones.IsSite2Site(r.DstZone):
			sets.SiteToSite = append(sets.SiteToSite, r.Rule)
		default:
			sets.Outbound = append(sets.Outbound, r.Rule)
		}
	}
	return sets
}
