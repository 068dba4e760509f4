package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/netmigrate/swmx/pkg/dashboard"
	"github.com/netmigrate/swmx/pkg/showrun"
	"github.com/netmigrate/swmx/pkg/util"
)

// ObjectService is the remote surface the compiler needs: org-scoped policy
// object listing and creation. Satisfied by dashboard.OrgScope.
type ObjectService interface {
	ListPolicyObjects(ctx context.Context) ([]dashboard.PolicyObject, error)
	ListPolicyObjectGroups(ctx context.Context) ([]dashboard.PolicyObjectGroup, error)
	CreatePolicyObject(ctx context.Context, req dashboard.PolicyObjectRequest) (*dashboard.PolicyObject, error)
	CreatePolicyObjectGroup(ctx context.Context, name string, objectIDs []string) (*dashboard.PolicyObjectGroup, error)
}

// Compiler drives the six ordered passes that populate the symbol tables and
// materialize remote policy objects. The ordering exists because SonicWall
// permits forward references within a file: dependencies must exist before
// dependents consume them.
type Compiler struct {
	svc     ObjectService
	res     *Resolver
	journal *Journal

	// defined tracks names defined by this run, per category, so a second
	// definition in the same file journals as a redefinition while a name
	// adopted from the Dashboard at bootstrap stays silent.
	defined map[string]bool
}

// NewCompiler creates a compiler writing skipped entities to journal.
func NewCompiler(svc ObjectService, res *Resolver, journal *Journal) *Compiler {
	return &Compiler{
		svc:     svc,
		res:     res,
		journal: journal,
		defined: map[string]bool{},
	}
}

// Bootstrap lists the organization's existing policy objects and groups and
// adopts them into the symbol tables.
func (c *Compiler) Bootstrap(ctx context.Context) error {
	objects, err := c.svc.ListPolicyObjects(ctx)
	if err != nil {
		return fmt.Errorf("listing policy objects: %w", err)
	}
	groups, err := c.svc.ListPolicyObjectGroups(ctx)
	if err != nil {
		return fmt.Errorf("listing policy object groups: %w", err)
	}
	c.res.Bootstrap(objects, groups)
	util.Infof("adopted %d existing objects, %d existing groups", len(objects), len(groups))
	return nil
}

// Compile runs the six passes over cfg in order. Only transport errors are
// returned; everything else journals and continues.
func (c *Compiler) Compile(ctx context.Context, cfg *showrun.Config) error {
	if err := c.passIPv4Objects(ctx, cfg); err != nil {
		return err
	}
	if err := c.passFQDNObjects(ctx, cfg); err != nil {
		return err
	}
	if err := c.passIPv4Groups(ctx, cfg); err != nil {
		return err
	}
	if err := c.passIPv6Groups(ctx, cfg); err != nil {
		return err
	}
	c.passNestedGroups(cfg)
	c.passServices(cfg)
	return nil
}

// markDefined records a definition and reports whether the name was already
// defined by this run (a true redefinition, not a bootstrap adoption).
func (c *Compiler) markDefined(category, name string) bool {
	key := category + "|" + name
	if c.defined[key] {
		return true
	}
	c.defined[key] = true
	return false
}

// ----------------------------------------------------------------------------
// Pass 1: IPv4 address objects
// ----------------------------------------------------------------------------

func (c *Compiler) passIPv4Objects(ctx context.Context, cfg *showrun.Config) error {
	log := util.WithPass("ipv4-objects")

	stanzas := cfg.Find("address-object ipv4")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindIPv4Object)...)

	for i, s := range stanzas {
		name := util.SanitizeName(strings.TrimPrefix(s.Text, "address-object ipv4"))
		log.Infof("processing %s (%d of %d)", name, i+1, len(stanzas))

		if _, ok := c.res.Addr.Objects[name]; ok {
			if c.markDefined("obj", name) {
				c.journal.Record(s.Text, "Object already exists")
			}
			continue
		}
		if _, ok := c.res.Addr.RangeObjects[name+RangeSuffix]; ok {
			if c.markDefined("obj", name) {
				c.journal.Record(s.Text, "Object already exists")
			}
			continue
		}
		if c.markDefined("obj", name) {
			c.journal.Record(s.Text, "Object already exists")
			continue
		}

		var cidr string
		var rangeLo, rangeHi string
		var badMask string
		for _, ln := range s.Children {
			fields := strings.Fields(ln.Text)
			if len(fields) < 2 {
				continue
			}
			switch fields[0] {
			case "host":
				cidr = fields[1] + "/32"
			case "network":
				if len(fields) < 3 {
					continue
				}
				if prefix, ok := util.PrefixFromMask(fields[2]); ok {
					cidr = fields[1] + "/" + strconv.Itoa(prefix)
				} else {
					badMask = fields[2]
				}
			case "range":
				if len(fields) < 3 {
					continue
				}
				rangeLo, rangeHi = fields[1], fields[2]
			case "zone":
				c.res.Addr.ObjectZones[name] = fields[1]
			}
		}

		switch {
		case badMask != "":
			c.journal.Record(s.Text, fmt.Sprintf("Unknown subnet mask %q", badMask))
		case rangeLo != "":
			if err := c.createRangeObject(ctx, s, name, rangeLo, rangeHi); err != nil {
				return err
			}
		case cidr != "":
			obj, err := c.svc.CreatePolicyObject(ctx, dashboard.PolicyObjectRequest{
				Name:     name,
				Category: dashboard.CategoryNetwork,
				Type:     dashboard.TypeCIDR,
				CIDR:     cidr,
			})
			if err != nil {
				return fmt.Errorf("creating object %s: %w", name, err)
			}
			c.res.Addr.Objects[obj.Name] = obj.ID
		default:
			c.journal.Record(s.Text, "No valid host or network line")
		}
	}
	return nil
}

// createRangeObject expands an inclusive IP interval into its minimal CIDR
// cover, creates one remote object per cover element, and wraps them in a
// group carrying the reserved range suffix.
func (c *Compiler) createRangeObject(ctx context.Context, s *showrun.Stanza, name, lo, hi string) error {
	cidrs, err := util.RangeToCIDRs(lo, hi)
	if err != nil {
		c.journal.Record(s.Text, fmt.Sprintf("Invalid range: %v", err))
		return nil
	}

	var objectIDs []string
	for i, cidr := range cidrs {
		obj, err := c.svc.CreatePolicyObject(ctx, dashboard.PolicyObjectRequest{
			Name:     name + RangeSuffix + strconv.Itoa(i),
			Category: dashboard.CategoryNetwork,
			Type:     dashboard.TypeCIDR,
			CIDR:     cidr,
		})
		if err != nil {
			return fmt.Errorf("creating range element %s: %w", cidr, err)
		}
		objectIDs = append(objectIDs, obj.ID)
	}
	if len(objectIDs) == 0 {
		c.journal.Record(s.Text, "Range produced no addresses")
		return nil
	}

	grp, err := c.svc.CreatePolicyObjectGroup(ctx, name+RangeSuffix, objectIDs)
	if err != nil {
		return fmt.Errorf("creating range group %s: %w", name, err)
	}
	c.res.Addr.RangeObjects[grp.Name] = grp.ID
	return nil
}

// ----------------------------------------------------------------------------
// Pass 2: FQDN objects
// ----------------------------------------------------------------------------

func (c *Compiler) passFQDNObjects(ctx context.Context, cfg *showrun.Config) error {
	log := util.WithPass("fqdn-objects")

	stanzas := cfg.Find("address-object fqdn")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindFQDNObject)...)

	for i, s := range stanzas {
		name := util.SanitizeName(strings.TrimPrefix(s.Text, "address-object fqdn"))
		log.Infof("processing %s (%d of %d)", name, i+1, len(stanzas))

		if _, ok := c.res.Addr.FQDNObjects[name]; ok {
			if c.markDefined("fqdn", name) {
				c.journal.Record(s.Text, "Object already exists")
			}
			continue
		}
		if c.markDefined("fqdn", name) {
			c.journal.Record(s.Text, "Object already exists")
			continue
		}

		var domain string
		for _, ln := range s.Children {
			fields := strings.Fields(ln.Text)
			if len(fields) >= 2 && fields[0] == "domain" {
				domain = fields[1]
			}
		}
		if domain == "" {
			c.journal.Record(s.Text, "No domain line")
			continue
		}

		obj, err := c.svc.CreatePolicyObject(ctx, dashboard.PolicyObjectRequest{
			Name:     name,
			Category: dashboard.CategoryNetwork,
			Type:     dashboard.TypeFQDN,
			FQDN:     domain,
		})
		if err != nil {
			return fmt.Errorf("creating fqdn object %s: %w", name, err)
		}
		c.res.Addr.FQDNObjects[obj.Name] = obj.ID
	}
	return nil
}

// ----------------------------------------------------------------------------
// Pass 3: IPv4 address groups without nested groups
// ----------------------------------------------------------------------------

func (c *Compiler) passIPv4Groups(ctx context.Context, cfg *showrun.Config) error {
	log := util.WithPass("ipv4-groups")

	stanzas := cfg.FindWithoutChild("address-group ipv4", "address-group ipv4")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindIPv4Group)...)

	for i, s := range stanzas {
		name := util.SanitizeName(strings.TrimPrefix(s.Text, "address-group ipv4"))
		log.Infof("processing %s (%d of %d)", name, i+1, len(stanzas))

		_, haveGroup := c.res.Addr.ObjectGroups[name]
		_, haveRange := c.res.Addr.RangeObjectGroups[name+RangeSuffix]
		if haveGroup || haveRange {
			if c.markDefined("group", name) {
				c.journal.Record(s.Text, "Object Group already exists")
			}
			continue
		}
		if c.markDefined("group", name) {
			c.journal.Record(s.Text, "Object Group already exists")
			continue
		}

		var objectIDs, rangeIDs []string
		for _, ln := range s.Children {
			content := strings.TrimSpace(ln.Text)
			switch {
			case strings.HasPrefix(content, "address-object ipv4"):
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-object ipv4"))
				if id, ok := c.res.Addr.Objects[ref]; ok {
					objectIDs = append(objectIDs, id)
				} else if id, ok := c.res.Addr.RangeObjects[ref+RangeSuffix]; ok {
					rangeIDs = append(rangeIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			case strings.HasPrefix(content, "address-group ipv4"):
				// Should not appear here (nested groups go to pass 5),
				// but SonicWall exports have surprised before.
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-group ipv4"))
				if id, ok := c.res.Addr.ObjectGroups[ref]; ok {
					rangeIDs = append(rangeIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			}
		}

		switch {
		case len(rangeIDs) > 0:
			// Groups referencing range covers cannot be one remote group
			// (a group cannot contain a group); keep the parts local and
			// expand at rule time.
			c.res.Addr.RangeObjectGroups[name+RangeSuffix] = GroupParts{
				ObjectIDs: objectIDs,
				GroupIDs:  rangeIDs,
			}
		case len(objectIDs) > 0:
			grp, err := c.svc.CreatePolicyObjectGroup(ctx, name, objectIDs)
			if err != nil {
				return fmt.Errorf("creating group %s: %w", name, err)
			}
			c.res.Addr.ObjectGroups[grp.Name] = grp.ID
		default:
			c.journal.Record(s.Text, fmt.Sprintf("%q contains no valid entries", name))
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Pass 4: IPv6 address groups — the syntactic home of FQDN and mixed groups
// ----------------------------------------------------------------------------

func (c *Compiler) passIPv6Groups(ctx context.Context, cfg *showrun.Config) error {
	log := util.WithPass("fqdn-groups")

	stanzas := cfg.FindWithoutChild("address-group ipv6", "address-group ipv6")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindIPv6Group)...)

	for i, s := range stanzas {
		name := util.SanitizeName(strings.TrimPrefix(s.Text, "address-group ipv6"))
		log.Infof("processing %s (%d of %d)", name, i+1, len(stanzas))

		_, haveGroup := c.res.Addr.ObjectGroups[name]
		_, haveFQDN := c.res.Addr.FQDNObjectGroups[name]
		if haveGroup || haveFQDN {
			if c.markDefined("fqdngroup", name) {
				c.journal.Record(s.Text, "Object Group already exists")
			}
			continue
		}
		if c.markDefined("fqdngroup", name) {
			c.journal.Record(s.Text, "Object Group already exists")
			continue
		}

		var fqdnIDs, objectIDs []string
		for _, ln := range s.Children {
			content := strings.TrimSpace(ln.Text)
			switch {
			case strings.HasPrefix(content, "address-object fqdn"):
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-object fqdn"))
				if id, ok := c.res.Addr.FQDNObjects[ref]; ok {
					fqdnIDs = append(fqdnIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			case strings.HasPrefix(content, "address-object ipv4"):
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-object ipv4"))
				if id, ok := c.res.Addr.Objects[ref]; ok {
					objectIDs = append(objectIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			}
		}

		switch {
		case len(fqdnIDs) > 0 && len(objectIDs) > 0:
			// Meraki does not permit mixed-category groups: split into an
			// FQDN half and an IPv4 half.
			if err := c.createSplitGroups(ctx, name, fqdnIDs, objectIDs); err != nil {
				return err
			}
		case len(fqdnIDs) > 0:
			grp, err := c.svc.CreatePolicyObjectGroup(ctx, name, fqdnIDs)
			if err != nil {
				return fmt.Errorf("creating fqdn group %s: %w", name, err)
			}
			c.res.Addr.FQDNObjectGroups[grp.Name] = grp.ID
		case len(objectIDs) > 0:
			c.journal.Record(s.Text, "IPv6 group has no FQDN members")
		default:
			c.journal.Record(s.Text, fmt.Sprintf("%q contains no valid entries", name))
		}
	}
	return nil
}

func (c *Compiler) createSplitGroups(ctx context.Context, name string, fqdnIDs, objectIDs []string) error {
	fqdnName := name + FQDNSplitSuffix
	if _, ok := c.res.Addr.FQDNObjectGroups[fqdnName]; !ok {
		grp, err := c.svc.CreatePolicyObjectGroup(ctx, fqdnName, fqdnIDs)
		if err != nil {
			return fmt.Errorf("creating split group %s: %w", fqdnName, err)
		}
		c.res.Addr.FQDNObjectGroups[grp.Name] = grp.ID
	}

	ipv4Name := name + IPv4SplitSuffix
	if _, ok := c.res.Addr.ObjectGroups[ipv4Name]; !ok {
		grp, err := c.svc.CreatePolicyObjectGroup(ctx, ipv4Name, objectIDs)
		if err != nil {
			return fmt.Errorf("creating split group %s: %w", ipv4Name, err)
		}
		c.res.Addr.ObjectGroups[grp.Name] = grp.ID
	}
	return nil
}

// ----------------------------------------------------------------------------
// Pass 5: nested IPv4 address groups — recorded locally, never materialized
// ----------------------------------------------------------------------------

func (c *Compiler) passNestedGroups(cfg *showrun.Config) {
	log := util.WithPass("nested-groups")

	stanzas := cfg.FindWithChild("address-group ipv4", "address-group ipv4")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindIPv4Group)...)

	for i, s := range stanzas {
		name := util.SanitizeName(strings.TrimPrefix(s.Text, "address-group ipv4"))
		log.Infof("processing %s (%d of %d)", name, i+1, len(stanzas))

		if _, ok := c.res.Addr.GroupOfGroups[name]; ok {
			c.journal.Record(s.Text, "Object Group already exists")
			continue
		}

		var objectIDs, groupIDs []string
		for _, ln := range s.Children {
			content := strings.TrimSpace(ln.Text)
			switch {
			case strings.HasPrefix(content, "address-object ipv4"):
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-object ipv4"))
				if id, ok := c.res.Addr.Objects[ref]; ok {
					objectIDs = append(objectIDs, id)
				} else if id, ok := c.res.Addr.RangeObjects[ref+RangeSuffix]; ok {
					groupIDs = append(groupIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			case strings.HasPrefix(content, "address-group ipv4"):
				ref := util.SanitizeName(strings.TrimPrefix(content, "address-group ipv4"))
				if id, ok := c.res.Addr.ObjectGroups[ref]; ok {
					groupIDs = append(groupIDs, id)
				} else if id, ok := c.res.Addr.RangeObjects[ref+RangeSuffix]; ok {
					groupIDs = append(groupIDs, id)
				} else {
					c.journal.Record(s.Text, fmt.Sprintf("Invalid object %q in group %q", ref, s.Text))
				}
			}
		}

		if len(groupIDs) > 0 {
			c.res.Addr.GroupOfGroups[name] = GroupParts{ObjectIDs: objectIDs, GroupIDs: groupIDs}
		} else {
			c.journal.Record(s.Text, fmt.Sprintf("%q contains no valid nested groups", name))
		}
	}
}

// ----------------------------------------------------------------------------
// Pass 6: service objects and service groups
// ----------------------------------------------------------------------------

func (c *Compiler) passServices(cfg *showrun.Config) {
	log := util.WithPass("services")

	for i, s := range cfg.Find("service-object") {
		log.Infof("processing service %d", i+1)
		c.compileServiceObject(s)
	}

	for _, s := range cfg.FindWithoutChild("service-group", "service-group") {
		c.compileServiceGroup(s, false)
	}
	for _, s := range cfg.FindWithChild("service-group", "service-group") {
		c.compileServiceGroup(s, true)
	}
}

// compileServiceObject parses a "service-object <name> <PROTO> <begin> <end>"
// line. ICMP variants carry no ports.
func (c *Compiler) compileServiceObject(s *showrun.Stanza) {
	name, rest := splitServiceName(strings.TrimPrefix(s.Text, "service-object "))
	name = util.SanitizeName(name)
	if name == "" {
		c.journal.Record(s.Text, "Invalid Service Object (no name)")
		return
	}

	if _, ok := c.res.Svc.Objects[name]; ok {
		c.journal.Record(s.Text, "Service Object already exists")
		return
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		c.journal.Record(s.Text, "Invalid Service Object (service not supported, missing ports, etc.)")
		return
	}

	switch fields[0] {
	case "TCP", "UDP":
		if len(fields) < 3 {
			c.journal.Record(s.Text, "Invalid Service Object (service not supported, missing ports, etc.)")
			return
		}
		port := fields[1]
		if fields[1] != fields[2] {
			port = fields[1] + "-" + fields[2]
		}
		c.res.Svc.Objects[name] = Service{Protocol: fields[0], Port: port}
	case "ICMP", "ICMPV6":
		c.res.Svc.Objects[name] = Service{Protocol: fields[0], Port: PortNA}
	default:
		c.journal.Record(s.Text, "Invalid Service Object (service not supported, missing ports, etc.)")
	}
}

// splitServiceName handles quoted and bare service names, returning the name
// and the remainder of the line.
func splitServiceName(s string) (string, string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		if end := strings.Index(s[1:], `"`); end >= 0 {
			return s[1 : end+1], s[end+2:]
		}
		return "", ""
	}
	fields := strings.SplitN(s, " ", 2)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}

func (c *Compiler) compileServiceGroup(s *showrun.Stanza, nested bool) {
	name := util.SanitizeName(strings.TrimPrefix(s.Text, "service-group"))

	if nested {
		if _, ok := c.res.Svc.GroupOfGroups[name]; ok {
			c.journal.Record(s.Text, "Service Group already exists")
			return
		}
	} else if _, ok := c.res.Svc.Groups[name]; ok {
		c.journal.Record(s.Text, "Service Group already exists")
		return
	}

	var services, nestedServices []Service
	for _, ln := range s.Children {
		content := strings.TrimSpace(ln.Text)
		switch {
		case strings.HasPrefix(content, "service-object"):
			ref := util.SanitizeName(strings.TrimPrefix(content, "service-object"))
			if svc, ok := c.res.Svc.Objects[ref]; ok {
				services = append(services, svc)
			} else {
				c.journal.Record(s.Text, fmt.Sprintf("Invalid service object %q in group %q", ref, s.Text))
			}
		case strings.HasPrefix(content, "service-group"):
			ref := util.SanitizeName(strings.TrimPrefix(content, "service-group"))
			if members, ok := c.res.Svc.Groups[ref]; ok {
				nestedServices = append(nestedServices, members...)
			} else {
				c.journal.Record(s.Text, fmt.Sprintf("Invalid service object %q in group %q", ref, s.Text))
			}
		}
	}

	if nested {
		if len(nestedServices) == 0 {
			c.journal.Record(s.Text, fmt.Sprintf("%q contains no valid nested service groups", name))
			return
		}
		c.res.Svc.GroupOfGroups[name] = append(services, nestedServices...)
		return
	}

	if len(services) == 0 {
		c.journal.Record(s.Text, "No valid service object line")
		return
	}
	c.res.Svc.Groups[name] = services
}
