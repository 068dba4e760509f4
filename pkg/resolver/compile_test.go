package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/netmigrate/swmx/pkg/dashboard"
	"github.com/netmigrate/swmx/pkg/showrun"
)

// fakeService is an in-memory ObjectService that mimics the Dashboard's
// behavior: every create returns a fresh id and the listing reflects it.
type fakeService struct {
	objects []dashboard.PolicyObject
	groups  []dashboard.PolicyObjectGroup
	nextID  int
	creates int
}

func (f *fakeService) ListPolicyObjects(ctx context.Context) ([]dashboard.PolicyObject, error) {
	return f.objects, nil
}

func (f *fakeService) ListPolicyObjectGroups(ctx context.Context) ([]dashboard.PolicyObjectGroup, error) {
	return f.groups, nil
}

func (f *fakeService) CreatePolicyObject(ctx context.Context, req dashboard.PolicyObjectRequest) (*dashboard.PolicyObject, error) {
	f.nextID++
	f.creates++
	obj := dashboard.PolicyObject{
		ID:       fmt.Sprintf("obj-%d", f.nextID),
		Name:     req.Name,
		Category: req.Category,
		Type:     req.Type,
		CIDR:     req.CIDR,
		FQDN:     req.FQDN,
	}
	f.objects = append(f.objects, obj)
	return &obj, nil
}

func (f *fakeService) CreatePolicyObjectGroup(ctx context.Context, name string, objectIDs []string) (*dashboard.PolicyObjectGroup, error) {
	f.nextID++
	f.creates++
	grp := dashboard.PolicyObjectGroup{
		ID:        fmt.Sprintf("grp-%d", f.nextID),
		Name:      name,
		ObjectIDs: objectIDs,
	}
	f.groups = append(f.groups, grp)
	return &grp, nil
}

func (f *fakeService) findObject(name string) *dashboard.PolicyObject {
	for i := range f.objects {
		if f.objects[i].Name == name {
			return &f.objects[i]
		}
	}
	return nil
}

func (f *fakeService) findGroup(name string) *dashboard.PolicyObjectGroup {
	for i := range f.groups {
		if f.groups[i].Name == name {
			return &f.groups[i]
		}
	}
	return nil
}

func compileConfig(t *testing.T, svc *fakeService, config string) *Resolver {
	t.Helper()
	cfg, err := showrun.Parse(strings.NewReader(config))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	res := New()
	comp := NewCompiler(svc, res, NewJournal(io.Discard))
	if err := comp.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := comp.Compile(context.Background(), cfg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return res
}

func TestCompileHostObject(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "H1"
  host 10.0.0.1
`)

	id, ok := res.Addr.Objects["H1"]
	if !ok {
		t.Fatal("H1 not in objects table")
	}
	obj := svc.findObject("H1")
	if obj == nil || obj.ID != id {
		t.Fatalf("remote object mismatch: %+v", obj)
	}
	if obj.CIDR != "10.0.0.1/32" {
		t.Errorf("H1 cidr = %q, want 10.0.0.1/32", obj.CIDR)
	}
}

func TestCompileNetworkObject(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "N1"
  network 10.1.0.0 255.255.0.0
  zone LAN
`)

	if _, ok := res.Addr.Objects["N1"]; !ok {
		t.Fatal("N1 not in objects table")
	}
	if got := svc.findObject("N1").CIDR; got != "10.1.0.0/16" {
		t.Errorf("N1 cidr = %q, want 10.1.0.0/16", got)
	}
	if res.Addr.ObjectZones["N1"] != "LAN" {
		t.Errorf("N1 zone = %q, want LAN", res.Addr.ObjectZones["N1"])
	}
}

func TestCompileUnknownMask(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "BAD"
  network 10.1.0.0 255.0.255.0
`)

	if _, ok := res.Addr.Objects["BAD"]; ok {
		t.Error("object with unknown mask was created")
	}
	if svc.creates != 0 {
		t.Errorf("creates = %d, want 0", svc.creates)
	}
}

func TestCompileRangeObject(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "R1"
  range 10.0.0.1 10.0.0.4
`)

	grpID, ok := res.Addr.RangeObjects["R1__range__"]
	if !ok {
		t.Fatal("R1__range__ not in range objects table")
	}

	grp := svc.findGroup("R1__range__")
	if grp == nil || grp.ID != grpID {
		t.Fatalf("remote range group mismatch: %+v", grp)
	}
	if len(grp.ObjectIDs) != 3 {
		t.Fatalf("range group has %d members, want 3", len(grp.ObjectIDs))
	}

	wantCIDRs := map[string]string{
		"R1__range__0": "10.0.0.1/32",
		"R1__range__1": "10.0.0.2/31",
		"R1__range__2": "10.0.0.4/32",
	}
	for name, cidr := range wantCIDRs {
		obj := svc.findObject(name)
		if obj == nil {
			t.Fatalf("range element %s missing", name)
		}
		if obj.CIDR != cidr {
			t.Errorf("%s cidr = %q, want %q", name, obj.CIDR, cidr)
		}
	}
}

func TestCompileRedefinition(t *testing.T) {
	svc := &fakeService{}
	var journal strings.Builder

	cfg, err := showrun.Parse(strings.NewReader(`address-object ipv4 "DUP"
  host 10.0.0.1
address-object ipv4 "DUP"
  host 10.0.0.2
`))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	res := New()
	comp := NewCompiler(svc, res, NewJournal(&journal))
	if err := comp.Compile(context.Background(), cfg); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	// Exactly one remote object; the second definition is journaled.
	if svc.creates != 1 {
		t.Errorf("creates = %d, want 1", svc.creates)
	}
	if got := svc.findObject("DUP").CIDR; got != "10.0.0.1/32" {
		t.Errorf("surviving object cidr = %q, want the first definition", got)
	}
	if !strings.Contains(journal.String(), "already exists") {
		t.Errorf("journal missing redefinition record: %q", journal.String())
	}
	if _, ok := res.Addr.Objects["DUP"]; !ok {
		t.Error("DUP not in objects table")
	}
}

func TestCompileGroup(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "H1"
  host 10.0.0.1
address-object ipv4 "H2"
  host 10.0.0.2
address-group ipv4 "G1"
  address-object ipv4 "H1"
  address-object ipv4 "H2"
`)

	grpID, ok := res.Addr.ObjectGroups["G1"]
	if !ok {
		t.Fatal("G1 not in object groups table")
	}
	grp := svc.findGroup("G1")
	if grp == nil || grp.ID != grpID {
		t.Fatalf("remote group mismatch: %+v", grp)
	}
	if len(grp.ObjectIDs) != 2 {
		t.Errorf("G1 has %d members, want 2", len(grp.ObjectIDs))
	}
}

func TestCompileEmptyGroupNotCreated(t *testing.T) {
	svc := &fakeService{}
	var journal strings.Builder

	cfg, _ := showrun.Parse(strings.NewReader(`address-group ipv4 "EMPTY"
  address-object ipv4 "MISSING"
`))

	res := New()
	comp := NewCompiler(svc, res, NewJournal(&journal))
	if err := comp.Compile(context.Background(), cfg); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if svc.findGroup("EMPTY") != nil {
		t.Error("empty group was created remotely")
	}
	if _, ok := res.Addr.ObjectGroups["EMPTY"]; ok {
		t.Error("empty group entered the symbol table")
	}
	if !strings.Contains(journal.String(), "MISSING") {
		t.Errorf("journal missing invalid-member record: %q", journal.String())
	}
}

func TestCompileGroupWithRange(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "H1"
  host 10.0.0.1
address-object ipv4 "R1"
  range 10.0.0.8 10.0.0.9
address-group ipv4 "GR"
  address-object ipv4 "H1"
  address-object ipv4 "R1"
`)

	// A group nesting a range stays local; no remote group named GR.
	if svc.findGroup("GR") != nil {
		t.Error("range-bearing group was created remotely")
	}
	parts, ok := res.Addr.RangeObjectGroups["GR__range__"]
	if !ok {
		t.Fatal("GR__range__ not in range object groups table")
	}
	if len(parts.ObjectIDs) != 1 || len(parts.GroupIDs) != 1 {
		t.Errorf("GR parts = %+v, want 1 object and 1 group", parts)
	}
}

func TestCompileMixedGroupSplit(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "SRV1"
  host 10.1.1.1
address-object fqdn "WEB"
  domain example.com
address-group ipv6 "MIX"
  address-object fqdn "WEB"
  address-object ipv4 "SRV1"
`)

	fqdnID, ok := res.Addr.FQDNObjectGroups["MIX__fqdn__split"]
	if !ok {
		t.Fatal("MIX__fqdn__split not in fqdn groups table")
	}
	ipv4ID, ok := res.Addr.ObjectGroups["MIX__ipv4__split"]
	if !ok {
		t.Fatal("MIX__ipv4__split not in object groups table")
	}
	if svc.findGroup("MIX__fqdn__split").ID != fqdnID || svc.findGroup("MIX__ipv4__split").ID != ipv4ID {
		t.Error("split group ids do not match remote state")
	}
	if svc.findGroup("MIX") != nil {
		t.Error("mixed group was created unsplit")
	}
}

func TestCompileFQDNOnlyGroup(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object fqdn "WEB"
  domain example.com
address-group ipv6 "FG"
  address-object fqdn "WEB"
`)

	if _, ok := res.Addr.FQDNObjectGroups["FG"]; !ok {
		t.Fatal("FG not in fqdn groups table")
	}
	if svc.findGroup("FG") == nil {
		t.Error("fqdn group not created remotely")
	}
}

func TestCompileNestedGroup(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `address-object ipv4 "H1"
  host 10.0.0.1
address-object ipv4 "H2"
  host 10.0.0.2
address-group ipv4 "INNER"
  address-object ipv4 "H1"
address-group ipv4 "OUTER"
  address-object ipv4 "H2"
  address-group ipv4 "INNER"
`)

	parts, ok := res.Addr.GroupOfGroups["OUTER"]
	if !ok {
		t.Fatal("OUTER not in group-of-groups table")
	}
	if len(parts.ObjectIDs) != 1 || len(parts.GroupIDs) != 1 {
		t.Errorf("OUTER parts = %+v, want 1 object and 1 group", parts)
	}
	// Nested groups are never flattened into a remote group.
	if svc.findGroup("OUTER") != nil {
		t.Error("nested group was materialized remotely")
	}
}

func TestCompileServices(t *testing.T) {
	svc := &fakeService{}
	res := compileConfig(t, svc, `service-object "HTTP" TCP 80 80
service-object "HI-PORTS" TCP 1000 2000
service-object "DNS" UDP 53 53
service-object "PING" ICMP
service-object "BOGUS" GRE 0 0
service-group "WEB"
  service-object "HTTP"
  service-object "DNS"
service-group "ALL"
  service-object "PING"
  service-group "WEB"
`)

	if got := res.Svc.Objects["HTTP"]; got != (Service{Protocol: "TCP", Port: "80"}) {
		t.Errorf("HTTP = %+v", got)
	}
	if got := res.Svc.Objects["HI-PORTS"]; got != (Service{Protocol: "TCP", Port: "1000-2000"}) {
		t.Errorf("HI-PORTS = %+v", got)
	}
	if got := res.Svc.Objects["PING"]; got != (Service{Protocol: "ICMP", Port: PortNA}) {
		t.Errorf("PING = %+v", got)
	}
	if _, ok := res.Svc.Objects["BOGUS"]; ok {
		t.Error("unsupported protocol entered the table")
	}

	if got := len(res.Svc.Groups["WEB"]); got != 2 {
		t.Errorf("WEB has %d members, want 2", got)
	}
	all := res.Svc.GroupOfGroups["ALL"]
	if len(all) != 3 {
		t.Errorf("ALL has %d members, want 3 (PING + WEB expansion)", len(all))
	}
}

func TestCompileIdempotent(t *testing.T) {
	const config = `address-object ipv4 "H1"
  host 10.0.0.1
address-object ipv4 "R1"
  range 10.0.0.1 10.0.0.4
address-object fqdn "WEB"
  domain example.com
address-group ipv4 "G1"
  address-object ipv4 "H1"
address-group ipv6 "MIX"
  address-object fqdn "WEB"
  address-object ipv4 "H1"
`

	svc := &fakeService{}
	compileConfig(t, svc, config)
	createsAfterFirst := svc.creates

	// Second run against the same org: everything is adopted at bootstrap
	// and nothing is created again.
	compileConfig(t, svc, config)
	if svc.creates != createsAfterFirst {
		t.Errorf("second run created %d new entities", svc.creates-createsAfterFirst)
	}
}
