// Package migrate orchestrates a full SonicWall-to-MX migration run:
// bootstrap, object compilation, VLAN and static-route creation, rule
// parsing, flattening, and ruleset installation.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/netmigrate/swmx/pkg/cli"
	"github.com/netmigrate/swmx/pkg/dashboard"
	"github.com/netmigrate/swmx/pkg/resolver"
	"github.com/netmigrate/swmx/pkg/settings"
	"github.com/netmigrate/swmx/pkg/showrun"
	"github.com/netmigrate/swmx/pkg/util"
)

// Output file names, matching what operators expect to find next to the run.
const (
	ObjectJournalPath = "unprocessed_objects.txt"
	RuleJournalPath   = "unprocessed_rules.txt"
	ZoneMapCSVPath    = "zone_default_traffic_map.csv"
)

// Options are the run-level switches.
type Options struct {
	// Mapping routes flattened rules to inbound / outbound / site-to-site
	// rulesets by zone instead of writing everything outbound.
	Mapping bool

	// VLANRules appends synthetic inter-zone deny rules derived from the
	// default-zone map to the outbound ruleset.
	VLANRules bool
}

// Migrator runs one migration against a target org and network.
type Migrator struct {
	dash    *dashboard.Client
	profile *settings.Profile
	opts    Options
}

// New creates a Migrator.
func New(dash *dashboard.Client, profile *settings.Profile, opts Options) *Migrator {
	return &Migrator{dash: dash, profile: profile, opts: opts}
}

// Run executes the migration. vlanPath and staticPath may be empty. The
// pipeline is sequential: later passes depend on ids returned by earlier
// ones, and serial calls keep the Dashboard rate limit observable.
func (m *Migrator) Run(ctx context.Context, runConfigPath, vlanPath, staticPath string) error {
	cfg, err := showrun.ParseFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("parsing show-run file: %w", err)
	}

	orgID, networkID, err := m.resolveTarget(ctx)
	if err != nil {
		return err
	}
	util.WithField("org", orgID).Infof("target network %s (%s)", m.profile.NetworkName, networkID)

	// Step 1: objects.
	fmt.Println(cli.Banner("Step 1", "Creating Network Objects, Group Objects, and Service Groups"))
	res := resolver.New()
	if err := m.compileObjects(ctx, cfg, orgID, res); err != nil {
		return err
	}

	// Step 2: VLANs and static routes needed by the rules.
	if vlanPath != "" {
		fmt.Println(cli.Banner("Step 2", "Creating VLANs"))
		if err := m.createVLANs(ctx, networkID, vlanPath); err != nil {
			return err
		}
	}
	if staticPath != "" {
		fmt.Println(cli.Banner("Step 2.5", "Creating Static Routes"))
		if err := m.createStaticRoutes(ctx, networkID, staticPath); err != nil {
			return err
		}
	}

	// Step 3: rules.
	fmt.Println(cli.Banner("Step 3", "Parsing ACL Rules"))
	zoneMap := resolver.NewZoneMap(zoneNames(m.profile.Zones))
	flat, err := m.parseRules(cfg, res, zoneMap)
	if err != nil {
		return err
	}

	// Step 4: install.
	fmt.Println(cli.Banner("Step 4", "Creating MX Rules"))
	if err := m.installRules(ctx, orgID, networkID, flat); err != nil {
		return err
	}

	// Step 5: inter-zone defaults.
	fmt.Println(cli.Banner("Step 5", "Creating Default Zone Behavior Rules"))
	if m.opts.VLANRules {
		if err := m.createVLANRules(ctx, networkID, zoneMap); err != nil {
			return err
		}
	}
	if err := zoneMap.WriteCSVFile(ZoneMapCSVPath); err != nil {
		return fmt.Errorf("writing zone map: %w", err)
	}
	util.Infof("wrote %s", ZoneMapCSVPath)

	return nil
}

// resolveTarget finds the org and network ids the profile names.
func (m *Migrator) resolveTarget(ctx context.Context) (orgID, networkID string, err error) {
	orgs, err := m.dash.GetOrganizations(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing organizations: %w", err)
	}
	for _, org := range orgs {
		if org.Name == m.profile.OrgName {
			orgID = org.ID
			break
		}
	}
	if orgID == "" {
		return "", "", fmt.Errorf("organization %q: %w", m.profile.OrgName, util.ErrNotFound)
	}

	networks, err := m.dash.GetOrganizationNetworks(ctx, orgID)
	if err != nil {
		return "", "", fmt.Errorf("listing networks: %w", err)
	}
	for _, nw := range networks {
		if nw.Name == m.profile.NetworkName {
			networkID = nw.ID
			break
		}
	}
	if networkID == "" {
		return "", "", fmt.Errorf("network %q: %w", m.profile.NetworkName, util.ErrNotFound)
	}
	return orgID, networkID, nil
}

func (m *Migrator) compileObjects(ctx context.Context, cfg *showrun.Config, orgID string, res *resolver.Resolver) error {
	journal, err := resolver.OpenJournal(ObjectJournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	comp := resolver.NewCompiler(m.dash.Org(orgID), res, journal)
	if err := comp.Bootstrap(ctx); err != nil {
		return err
	}
	if err := comp.Compile(ctx, cfg); err != nil {
		return err
	}
	if n := journal.Count(); n > 0 {
		util.Warnf("%d objects skipped, see %s", n, ObjectJournalPath)
	}
	return nil
}

// parseRules resolves every access rule and flattens the survivors.
func (m *Migrator) parseRules(cfg *showrun.Config, res *resolver.Resolver, zoneMap *resolver.ZoneMap) ([]resolver.FlatRule, error) {
	journal, err := resolver.OpenJournal(RuleJournalPath)
	if err != nil {
		return nil, err
	}
	defer journal.Close()

	for _, s := range cfg.Find("access-rule ipv6") {
		journal.RecordInline(s.Text, "IPv6 rules not supported in Meraki")
	}

	stanzas := cfg.Find("access-rule ipv4")
	stanzas = append(stanzas, showrun.SplitMultiEntity(stanzas, showrun.KindRule)...)

	parser := resolver.NewRuleParser(res, zoneMap)
	var flat []resolver.FlatRule

	for i, s := range stanzas {
		acl, err := parser.ParseRule(s)
		if errors.Is(err, resolver.ErrDefaultZoneRule) {
			util.Debugf("rule %d recorded as inter-zone default", i+1)
			continue
		}
		if err != nil {
			journal.RecordInline(s.Text, err.Error())
			util.WithEntity(s.Text).Warnf("skipping rule (%d of %d): %v", i+1, len(stanzas), err)
			continue
		}
		flat = append(flat, resolver.Flatten(acl)...)
		util.Infof("processed rule %d of %d", i+1, len(stanzas))
	}

	if n := journal.Count(); n > 0 {
		util.Warnf("%d rules skipped, see %s", n, RuleJournalPath)
	}
	return flat, nil
}

// installRules classifies the flattened rules and replaces the target
// rulesets.
func (m *Migrator) installRules(ctx context.Context, orgID, networkID string, flat []resolver.FlatRule) error {
	sets := resolver.Classify(flat, m.profile, m.opts.Mapping)

	util.Infof("adding %d rules to %s", len(flat), m.profile.NetworkName)

	if !m.opts.Mapping {
		if err := m.dash.UpdateNetworkApplianceFirewallL3FirewallRules(ctx, networkID, sets.Outbound); err != nil {
			return fmt.Errorf("writing outbound rules: %w", err)
		}
		util.Infof("outbound rule list written (%d rules)", len(sets.Outbound))
		return nil
	}

	if err := m.dash.UpdateOrganizationApplianceVpnVpnFirewallRules(ctx, orgID, sets.SiteToSite); err != nil {
		return fmt.Errorf("writing site-to-site rules: %w", err)
	}
	util.Infof("site-to-site rule list written (%d rules)", len(sets.SiteToSite))

	if err := m.dash.UpdateNetworkApplianceFirewallL3FirewallRules(ctx, networkID, sets.Outbound); err != nil {
		return fmt.Errorf("writing outbound rules: %w", err)
	}
	util.Infof("outbound rule list written (%d rules)", len(sets.Outbound))

	if err := m.dash.UpdateNetworkApplianceFirewallInboundFirewallRules(ctx, networkID, sets.Inbound); err != nil {
		return fmt.Errorf("writing inbound rules: %w", err)
	}
	util.Infof("inbound rule list written (%d rules)", len(sets.Inbound))
	return nil
}

// createVLANRules appends the zone map's synthetic deny rules after the
// existing outbound rules.
func (m *Migrator) createVLANRules(ctx context.Context, networkID string, zoneMap *resolver.ZoneMap) error {
	existing, err := m.dash.GetNetworkApplianceFirewallL3FirewallRules(ctx, networkID)
	if err != nil {
		return fmt.Errorf("reading outbound rules: %w", err)
	}

	vlanRules := zoneMap.VLANRules(m.profile.Zones)
	if len(vlanRules) == 0 {
		util.Infof("no VLAN zone rules to create")
		return nil
	}

	if err := m.dash.UpdateNetworkApplianceFirewallL3FirewallRules(ctx, networkID, append(existing, vlanRules...)); err != nil {
		return fmt.Errorf("writing VLAN zone rules: %w", err)
	}
	util.Infof("created %d VLAN zone rules", len(vlanRules))
	return nil
}

func zoneNames(zones map[string]string) []string {
	names := make([]string, 0, len(zones))
	for z := range zones {
		names = append(names, z)
	}
	return names
}
