package resolver

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/netmigrate/swmx/pkg/dashboard"
)

// csvCorner labels the top-left cell of the zone map table.
const csvCorner = `Source Zone \ Destination Zone`

// ZoneMap tracks the default traffic behavior between zone pairs, populated
// from any/any/any/any rules. Cells are unset until such a rule is seen;
// later rules for the same pair overwrite earlier ones.
type ZoneMap struct {
	zones []string
	cells map[string]map[string]string
}

// NewZoneMap creates a zone map with one row and column per configured zone,
// in sorted order for stable output.
func NewZoneMap(zones []string) *ZoneMap {
	sorted := make([]string, len(zones))
	copy(sorted, zones)
	sort.Strings(sorted)

	cells := make(map[string]map[string]string, len(sorted))
	for _, z := range sorted {
		cells[z] = map[string]string{}
	}
	return &ZoneMap{zones: sorted, cells: cells}
}

// Has reports whether zone is configured.
func (m *ZoneMap) Has(zone string) bool {
	_, ok := m.cells[zone]
	return ok
}

// Set records the default action between src and dst. Pairs involving an
// unconfigured zone are ignored.
func (m *ZoneMap) Set(src, dst, action string) bool {
	if !m.Has(src) || !m.Has(dst) {
		return false
	}
	m.cells[src][dst] = action
	return true
}

// Get returns the recorded action for a zone pair, or "".
func (m *ZoneMap) Get(src, dst string) string {
	return m.cells[src][dst]
}

// Zones returns the configured zones in table order.
func (m *ZoneMap) Zones() []string {
	return m.zones
}

// WriteCSV serializes the map as a table with source zones as rows and
// destination zones as columns.
func (m *ZoneMap) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{csvCorner}, m.zones...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, src := range m.zones {
		row := make([]string, 0, len(m.zones)+1)
		row = append(row, src)
		for _, dst := range m.zones {
			row = append(row, m.cells[src][dst])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the map to path, replacing any existing file.
func (m *ZoneMap) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.WriteCSV(f)
}

// VLANRules projects the map into concrete VLAN-scoped deny rules: one rule
// per source zone backed by a local VLAN, denying traffic to every
// destination zone whose default is deny and whose VLAN id is non-empty.
// Allows stay implicit. vlans maps zone name to VLAN id; empty means the
// zone is not a local VLAN.
func (m *ZoneMap) VLANRules(vlans map[string]string) []dashboard.FirewallRule {
	var rules []dashboard.FirewallRule
	for _, src := range m.zones {
		srcVLAN := vlans[src]
		if srcVLAN == "" {
			continue
		}

		var dests []string
		for _, dst := range m.zones {
			if vlans[dst] == "" || m.cells[src][dst] != "deny" {
				continue
			}
			dests = append(dests, "VLAN("+vlans[dst]+").*")
		}
		if len(dests) == 0 {
			continue
		}

		rules = append(rules, dashboard.FirewallRule{
			Comment:  "Any Any Inter-zone rule",
			Policy:   "deny",
			Protocol: "any",
			SrcPort:  "any",
			SrcCidr:  "VLAN(" + srcVLAN + ").*",
			DestCidr: strings.Join(dests, ","),
			DestPort: "any",
		})
	}
	return rules
}
