package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/netmigrate/swmx/pkg/showrun"
	"github.com/netmigrate/swmx/pkg/util"
)

// ErrDefaultZoneRule marks an any/any/any/any rule: it is recorded in the
// default-zone map instead of producing MX rules, and is not a failure.
var ErrDefaultZoneRule = errors.New("any/any/any/any rule recorded in default zone map")

// refAlt matches one source/service/destination reference: a quoted or bare
// name or group, or the literal any.
const refAlt = `name "[^"]+"|name [\w.\-]+|group "[^"]+"|group [\w.\-]+|any`

// Header regexes extract whatever pieces are present from the first line of
// an ipv4 access rule. The slot patterns match independently because
// SonicWall emits the slots in varying order. Best effort: the child-line
// scan below is the source of truth and corrects anything the header misses.
var (
	aclHeaderRe = regexp.MustCompile(`^access-rule ipv4 from (\w+) to (\w+)(?: action (\w+))?`)
	aclSrcRe    = regexp.MustCompile(`\bsource address (` + refAlt + `)`)
	aclDstRe    = regexp.MustCompile(`\bdestination address (` + refAlt + `)`)
	aclSvcRe    = regexp.MustCompile(`\bservice (` + refAlt + `)`)
)

// Slot holds a resolved rule endpoint: the literal any, a single
// OBJ[id]/GRP[id] token, or a list of tokens (split halves, range covers,
// nested group expansions). The flattener always iterates the token list.
type Slot struct {
	tokens []string
}

func slotAny() Slot               { return Slot{tokens: []string{"any"}} }
func slotSingle(tok string) Slot  { return Slot{tokens: []string{tok}} }
func slotMany(toks []string) Slot { return Slot{tokens: toks} }

// IsZero reports an unset slot.
func (s Slot) IsZero() bool { return len(s.tokens) == 0 }

// IsAny reports the literal any endpoint.
func (s Slot) IsAny() bool { return len(s.tokens) == 1 && s.tokens[0] == "any" }

// Tokens returns the endpoint tokens. Always non-empty for a set slot.
func (s Slot) Tokens() []string { return s.tokens }

// AclRule is one parsed and resolved access rule.
type AclRule struct {
	SrcZone  string
	DstZone  string
	Action   string
	Comment  string
	SrcPort  string
	Src      Slot
	Dst      Slot
	Services []Service
}

// RuleParser resolves access-rule stanzas against the symbol tables and
// records inter-zone defaults as a side effect.
type RuleParser struct {
	res   *Resolver
	zones *ZoneMap
}

// NewRuleParser creates a rule parser. zones may be nil when no zone map is
// configured; any/any/any/any rules are then simply skipped.
func NewRuleParser(res *Resolver, zones *ZoneMap) *RuleParser {
	return &RuleParser{res: res, zones: zones}
}

// ParseRule resolves one access-rule stanza. The returned error carries the
// journal reason for unprocessable rules; ErrDefaultZoneRule flags the
// any/any/any/any case, which is not journaled.
func (p *RuleParser) ParseRule(s *showrun.Stanza) (*AclRule, error) {
	acl := &AclRule{}

	// Header pass: catches rules whose children are incomplete.
	if m := aclHeaderRe.FindStringSubmatch(s.Text); m != nil {
		acl.SrcZone = m[1]
		acl.DstZone = m[2]
		acl.Action = m[3]
		if sm := aclSrcRe.FindStringSubmatch(s.Text); sm != nil {
			if err := p.resolveAddressSlot(sm[1], acl, false); err != nil {
				return nil, err
			}
		}
		if dm := aclDstRe.FindStringSubmatch(s.Text); dm != nil {
			if err := p.resolveAddressSlot(dm[1], acl, true); err != nil {
				return nil, err
			}
		}
		if vm := aclSvcRe.FindStringSubmatch(s.Text); vm != nil {
			services, err := p.resolveService(vm[1])
			if err != nil {
				return nil, err
			}
			acl.Services = services
		}
	}

	// Child pass: the source of truth.
	for _, ln := range s.Children {
		content := strings.TrimSpace(ln.Text)

		if strings.HasPrefix(content, "no enable") {
			return nil, util.Tagged(util.ErrInactiveRule, "Inactive rules not allowed in Meraki")
		}

		switch {
		case strings.HasPrefix(content, "from "):
			acl.SrcZone = strings.TrimSpace(strings.TrimPrefix(content, "from"))
		case strings.HasPrefix(content, "to "):
			acl.DstZone = strings.TrimSpace(strings.TrimPrefix(content, "to"))
		case strings.HasPrefix(content, "action"):
			acl.Action = strings.TrimSpace(strings.TrimPrefix(content, "action"))
		case strings.HasPrefix(content, "comment"):
			acl.Comment = util.StripQuotes(strings.TrimSpace(strings.TrimPrefix(content, "comment")))
		case strings.HasPrefix(content, "source address"):
			if err := p.resolveAddressSlot(strings.TrimSpace(strings.TrimPrefix(content, "source address")), acl, false); err != nil {
				return nil, err
			}
		case strings.HasPrefix(content, "source port"):
			if strings.TrimSpace(strings.TrimPrefix(content, "source port")) == "any" {
				acl.SrcPort = "any"
			}
		case strings.HasPrefix(content, "destination address"):
			if err := p.resolveAddressSlot(strings.TrimSpace(strings.TrimPrefix(content, "destination address")), acl, true); err != nil {
				return nil, err
			}
		case strings.HasPrefix(content, "service"):
			services, err := p.resolveService(strings.TrimSpace(strings.TrimPrefix(content, "service")))
			if err != nil {
				return nil, err
			}
			acl.Services = services
		}
	}

	if acl.Action == "" || acl.SrcZone == "" || acl.DstZone == "" ||
		acl.Src.IsZero() || acl.Dst.IsZero() || len(acl.Services) == 0 {
		return nil, util.Tagged(util.ErrUnsupported, "Invalid line")
	}

	// any/any/any/any rules become inter-zone defaults, not MX rules.
	if acl.Src.IsAny() && acl.Dst.IsAny() && acl.Services[0].IsAny() {
		if p.zones != nil {
			p.zones.Set(acl.SrcZone, acl.DstZone, normalizeAction(acl.Action))
		}
		return nil, ErrDefaultZoneRule
	}

	return acl, nil
}

func normalizeAction(action string) string {
	if action == "allow" {
		return "allow"
	}
	return "deny"
}

// resolveAddressSlot resolves a "name X" / "group X" / "any" reference into
// the src or dst slot. FQDN endpoints are destinations only.
func (p *RuleParser) resolveAddressSlot(ref string, acl *AclRule, dest bool) error {
	slot, err := p.resolveAddress(ref, dest)
	if err != nil {
		return err
	}
	if dest {
		acl.Dst = slot
	} else {
		acl.Src = slot
	}
	return nil
}

func (p *RuleParser) resolveAddress(ref string, dest bool) (Slot, error) {
	addr := p.res.Addr

	switch {
	case ref == "any":
		return slotAny(), nil

	case strings.HasPrefix(ref, "name"):
		name := util.SanitizeName(strings.TrimPrefix(ref, "name"))
		if id, ok := addr.Objects[name]; ok {
			return slotSingle("OBJ[" + id + "]"), nil
		}
		if id, ok := addr.RangeObjects[name+RangeSuffix]; ok {
			return slotSingle("GRP[" + id + "]"), nil
		}
		if id, ok := addr.FQDNObjects[name]; ok {
			if !dest {
				return Slot{}, util.Tagged(util.ErrUnsupported, "FQDN Source Address not supported in Meraki")
			}
			return slotSingle("OBJ[" + id + "]"), nil
		}
		if dest {
			return Slot{}, util.Tagged(util.ErrUnresolvedReference, "No valid Destination Object exists")
		}
		return Slot{}, util.Tagged(util.ErrUnresolvedReference, "No valid Source Object exists")

	case strings.HasPrefix(ref, "group"):
		name := util.SanitizeName(strings.TrimPrefix(ref, "group"))
		if id, ok := addr.ObjectGroups[name]; ok {
			return slotSingle("GRP[" + id + "]"), nil
		}
		if parts, ok := addr.RangeObjectGroups[name+RangeSuffix]; ok {
			return slotMany(parts.tokens()), nil
		}
		if fqdnID, ok := addr.FQDNObjectGroups[name+FQDNSplitSuffix]; ok {
			tokens := []string{"GRP[" + fqdnID + "]"}
			if ipv4ID, ok := addr.ObjectGroups[name+IPv4SplitSuffix]; ok {
				tokens = append(tokens, "GRP["+ipv4ID+"]")
			}
			return slotMany(tokens), nil
		}
		if parts, ok := addr.GroupOfGroups[name]; ok {
			return slotMany(parts.tokens()), nil
		}
		if id, ok := addr.FQDNObjectGroups[name]; ok {
			if !dest {
				return Slot{}, util.Tagged(util.ErrUnsupported, "FQDN Source Address Group not supported in Meraki")
			}
			return slotSingle("GRP[" + id + "]"), nil
		}
		if dest {
			return Slot{}, util.Tagged(util.ErrUnresolvedReference, "No valid Destination Object Group exists (group contains no valid objects)")
		}
		return Slot{}, util.Tagged(util.ErrUnresolvedReference, "No valid Source Object Group exists (group contains no valid objects)")
	}

	return Slot{}, fmt.Errorf("unrecognized address reference %q", ref)
}

// tokens renders group parts in the OBJ[id]/GRP[id] form the rule list takes.
func (g GroupParts) tokens() []string {
	out := make([]string, 0, len(g.ObjectIDs)+len(g.GroupIDs))
	for _, id := range g.ObjectIDs {
		out = append(out, "OBJ["+id+"]")
	}
	for _, id := range g.GroupIDs {
		out = append(out, "GRP["+id+"]")
	}
	return out
}

func (p *RuleParser) resolveService(ref string) ([]Service, error) {
	svc := p.res.Svc

	switch {
	case ref == "any":
		return []Service{ServiceAny}, nil

	case strings.HasPrefix(ref, "name"):
		name := util.SanitizeName(strings.TrimPrefix(ref, "name"))
		if s, ok := svc.Objects[name]; ok {
			return []Service{s}, nil
		}
		return nil, util.Tagged(util.ErrUnresolvedReference, "No valid Service Object found in local list (unsupported protocol, no port numbers, etc.)")

	case strings.HasPrefix(ref, "group"):
		name := util.SanitizeName(strings.TrimPrefix(ref, "group"))
		if members, ok := svc.Groups[name]; ok {
			return CombineServices(members), nil
		}
		if members, ok := svc.GroupOfGroups[name]; ok {
			return CombineServices(members), nil
		}
		return nil, util.Tagged(util.ErrUnresolvedReference, "No valid Service Object Group found in local list (no valid service objects present)")
	}

	return nil, fmt.Errorf("unrecognized service reference %q", ref)
}
