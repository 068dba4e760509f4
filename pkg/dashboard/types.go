package dashboard

// Organization is a Dashboard organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Network is a Dashboard network within an organization.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Policy object types.
const (
	TypeCIDR = "cidr"
	TypeFQDN = "fqdn"

	// CategoryNetwork is the only policy object category this tool creates.
	CategoryNetwork = "network"
)

// PolicyObject is an organization-scoped named CIDR or FQDN primitive.
type PolicyObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
	CIDR     string `json:"cidr,omitempty"`
	FQDN     string `json:"fqdn,omitempty"`
}

// PolicyObjectRequest is the creation payload for a policy object.
type PolicyObjectRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
	CIDR     string `json:"cidr,omitempty"`
	FQDN     string `json:"fqdn,omitempty"`
}

// PolicyObjectGroup is a named collection of policy objects.
type PolicyObjectGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ObjectIDs []string `json:"objectIds"`
}

// FirewallRule is the MX wire-form rule record. SrcCidr and DestCidr carry
// either a CIDR, "any", or the Dashboard's OBJ[id]/GRP[id]/VLAN(n).* tokens.
type FirewallRule struct {
	Comment  string `json:"comment"`
	Policy   string `json:"policy"`
	Protocol string `json:"protocol"`
	SrcPort  string `json:"srcPort"`
	SrcCidr  string `json:"srcCidr"`
	DestCidr string `json:"destCidr"`
	DestPort string `json:"destPort"`
}

// VLAN is an appliance VLAN record.
type VLAN struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Subnet        string `json:"subnet"`
	ApplianceIP   string `json:"applianceIp"`
	GroupPolicyID string `json:"groupPolicyId,omitempty"`
}

// StaticRoute is an appliance static route record.
type StaticRoute struct {
	Name      string `json:"name"`
	Subnet    string `json:"subnet"`
	GatewayIP string `json:"gatewayIp"`
}
