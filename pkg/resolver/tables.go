package resolver

import (
	"strings"

	"github.com/netmigrate/swmx/pkg/dashboard"
)

// Reserved name suffixes. A sanitized name ending in RangeSuffix denotes a
// range group; the split suffixes denote the two halves of a mixed
// FQDN/IPv4 group.
const (
	RangeSuffix     = "__range__"
	FQDNSplitSuffix = "__fqdn__split"
	IPv4SplitSuffix = "__ipv4__split"
)

// GroupParts is the local record of a group that cannot be a single remote
// group: direct object member ids plus referenced group ids (range covers or
// nested groups), expanded at rule-flattening time.
type GroupParts struct {
	ObjectIDs []string
	GroupIDs  []string
}

// AddressTable maps sanitized names to remote ids (or, for constructs the
// Dashboard cannot hold natively, to local GroupParts records). Entries are
// created during the compiler passes and never deleted.
type AddressTable struct {
	Objects           map[string]string
	FQDNObjects       map[string]string
	RangeObjects      map[string]string
	ObjectGroups      map[string]string
	FQDNObjectGroups  map[string]string
	RangeObjectGroups map[string]GroupParts
	GroupOfGroups     map[string]GroupParts

	// ObjectZones records the zone tag seen on an address-object stanza.
	ObjectZones map[string]string
}

// NewAddressTable creates an empty address symbol table.
func NewAddressTable() *AddressTable {
	return &AddressTable{
		Objects:           map[string]string{},
		FQDNObjects:       map[string]string{},
		RangeObjects:      map[string]string{},
		ObjectGroups:      map[string]string{},
		FQDNObjectGroups:  map[string]string{},
		RangeObjectGroups: map[string]GroupParts{},
		GroupOfGroups:     map[string]GroupParts{},
		ObjectZones:       map[string]string{},
	}
}

// ServiceTable maps sanitized service names to primitives and groups.
// Service groups have no Dashboard counterpart; they live only here and are
// expanded at rule-flattening time.
type ServiceTable struct {
	Objects       map[string]Service
	Groups        map[string][]Service
	GroupOfGroups map[string][]Service
}

// NewServiceTable creates an empty service symbol table.
func NewServiceTable() *ServiceTable {
	return &ServiceTable{
		Objects:       map[string]Service{},
		Groups:        map[string][]Service{},
		GroupOfGroups: map[string][]Service{},
	}
}

// Resolver holds the symbol tables for one migration run. It replaces the
// process-wide registers of older migration scripts with an explicit context
// passed to every pass.
type Resolver struct {
	Addr *AddressTable
	Svc  *ServiceTable
}

// New creates a Resolver with empty tables.
func New() *Resolver {
	return &Resolver{
		Addr: NewAddressTable(),
		Svc:  NewServiceTable(),
	}
}

// Bootstrap adopts the organization's existing policy objects and groups so
// repeated runs create nothing twice. Objects classify by type. Groups
// classify heuristically: a name carrying the range suffix is a range group;
// otherwise a group whose members are all known CIDR object ids is an
// address group, and anything else is an FQDN group.
func (r *Resolver) Bootstrap(objects []dashboard.PolicyObject, groups []dashboard.PolicyObjectGroup) {
	cidrIDs := make(map[string]bool, len(objects))

	for _, obj := range objects {
		switch obj.Type {
		case dashboard.TypeCIDR:
			r.Addr.Objects[obj.Name] = obj.ID
			cidrIDs[obj.ID] = true
		case dashboard.TypeFQDN:
			r.Addr.FQDNObjects[obj.Name] = obj.ID
		}
	}

	for _, grp := range groups {
		if strings.Contains(grp.Name, RangeSuffix) {
			r.Addr.RangeObjects[grp.Name] = grp.ID
			continue
		}
		allCIDR := true
		for _, id := range grp.ObjectIDs {
			if !cidrIDs[id] {
				allCIDR = false
				break
			}
		}
		if allCIDR {
			r.Addr.ObjectGroups[grp.Name] = grp.ID
		} else {
			r.Addr.FQDNObjectGroups[grp.Name] = grp.ID
		}
	}
}
