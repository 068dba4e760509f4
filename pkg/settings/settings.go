// Package settings loads the installation profile for a migration run.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the Dashboard API key.
// The key never lives in the profile file.
const APIKeyEnv = "MERAKI_API_KEY"

// Profile describes the target installation: which org and network to write
// to, the zone topology of the source firewall, and which zones route rules
// into which MX ruleset.
type Profile struct {
	// OrgName is the Meraki organization name
	OrgName string `yaml:"org_name"`

	// NetworkName is the target MX network name
	NetworkName string `yaml:"network_name"`

	// Zones maps SonicWall zone names to local VLAN ids.
	// An empty string means the zone is not a local VLAN.
	Zones map[string]string `yaml:"zones"`

	// Inbound lists zones whose source-side rules go to the inbound ruleset
	Inbound []string `yaml:"inbound,omitempty"`

	// Site2Site lists zones whose presence as src or dst routes rules to
	// the site-to-site VPN ruleset
	Site2Site []string `yaml:"site2site,omitempty"`

	// CacheAddr is an optional redis address for caching org-wide policy
	// object listings between runs (useful against large orgs)
	CacheAddr string `yaml:"cache_addr,omitempty"`
}

// DefaultProfilePath returns the default path for the profile file
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/swmx_profile.yaml"
	}
	return filepath.Join(home, ".swmx", "profile.yaml")
}

// Load reads the profile from the default location
func Load() (*Profile, error) {
	return LoadFrom(DefaultProfilePath())
}

// LoadFrom reads the profile from a specific path
func LoadFrom(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	p.applyDefaults()

	return p, nil
}

func (p *Profile) applyDefaults() {
	if p.Zones == nil {
		p.Zones = map[string]string{}
	}
	if p.Inbound == nil {
		p.Inbound = []string{"WAN"}
	}
	if p.Site2Site == nil {
		p.Site2Site = []string{"VPN", "SSLVPN"}
	}
}

// Validate checks that the profile identifies a target installation
func (p *Profile) Validate() error {
	if p.OrgName == "" {
		return fmt.Errorf("profile: org_name is required")
	}
	if p.NetworkName == "" {
		return fmt.Errorf("profile: network_name is required")
	}
	return nil
}

// APIKey returns the Dashboard API key from the environment
func APIKey() string {
	return os.Getenv(APIKeyEnv)
}

// IsInbound reports whether zone routes its source-side rules inbound
func (p *Profile) IsInbound(zone string) bool {
	return contains(p.Inbound, zone)
}

// IsSite2Site reports whether zone routes rules to the site-to-site ruleset
func (p *Profile) IsSite2Site(zone string) bool {
	return contains(p.Site2Site, zone)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
