package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/netmigrate/swmx/pkg/dashboard"
	"github.com/netmigrate/swmx/pkg/util"
)

// loadJSON reads a JSON array of records from path.
func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// createVLANs creates each VLAN from the file that is not already present on
// the network, matching by name.
func (m *Migrator) createVLANs(ctx context.Context, networkID, path string) error {
	vlans, err := loadJSON[dashboard.VLAN](path)
	if err != nil {
		return err
	}

	existing, err := m.dash.GetNetworkApplianceVlans(ctx, networkID)
	if err != nil {
		return fmt.Errorf("listing VLANs: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, v := range existing {
		have[v.Name] = true
	}

	for i, vlan := range vlans {
		util.Infof("processing vlan %s (%d of %d)", vlan.ID, i+1, len(vlans))
		if have[vlan.Name] {
			continue
		}
		if err := m.dash.CreateNetworkApplianceVlan(ctx, networkID, vlan); err != nil {
			return fmt.Errorf("creating VLAN %s: %w", vlan.ID, err)
		}
	}
	return nil
}

// createStaticRoutes creates each static route from the file that is not
// already present on the network, matching by name.
func (m *Migrator) createStaticRoutes(ctx context.Context, networkID, path string) error {
	routes, err := loadJSON[dashboard.StaticRoute](path)
	if err != nil {
		return err
	}

	existing, err := m.dash.GetNetworkApplianceStaticRoutes(ctx, networkID)
	if err != nil {
		return fmt.Errorf("listing static routes: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Name] = true
	}

	for i, route := range routes {
		util.Infof("processing route %s (%d of %d)", route.Name, i+1, len(routes))
		if have[route.Name] {
			continue
		}
		if err := m.dash.CreateNetworkApplianceStaticRoute(ctx, networkID, route); err != nil {
			return fmt.Errorf("creating static route %s: %w", route.Name, err)
		}
	}
	return nil
}
