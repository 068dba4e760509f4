package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeProfile(t, `org_name: Acme
network_name: HQ
zones:
  LAN: "100"
  DMZ: "200"
  WAN: ""
inbound: [WAN]
site2site: [VPN]
`)

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if p.OrgName != "Acme" || p.NetworkName != "HQ" {
		t.Errorf("identity = %s/%s", p.OrgName, p.NetworkName)
	}
	if p.Zones["LAN"] != "100" || p.Zones["WAN"] != "" {
		t.Errorf("zones = %+v", p.Zones)
	}
	if !p.IsInbound("WAN") || p.IsInbound("LAN") {
		t.Error("inbound classification wrong")
	}
	if !p.IsSite2Site("VPN") || p.IsSite2Site("SSLVPN") {
		t.Error("site2site should hold only the configured zones")
	}
}

func TestLoadFromDefaults(t *testing.T) {
	path := writeProfile(t, `org_name: Acme
network_name: HQ
`)

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	// Classification sets default to the well-known zone names.
	if !p.IsInbound("WAN") {
		t.Error("default inbound should contain WAN")
	}
	if !p.IsSite2Site("VPN") || !p.IsSite2Site("SSLVPN") {
		t.Error("default site2site should contain VPN and SSLVPN")
	}
	if p.Zones == nil {
		t.Error("zones should default to an empty map")
	}
}

func TestValidate(t *testing.T) {
	p := &Profile{NetworkName: "HQ"}
	if err := p.Validate(); err == nil {
		t.Error("Validate accepted a profile without org_name")
	}
	p = &Profile{OrgName: "Acme"}
	if err := p.Validate(); err == nil {
		t.Error("Validate accepted a profile without network_name")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")
	if got := APIKey(); got != "secret" {
		t.Errorf("APIKey() = %q", got)
	}
}
