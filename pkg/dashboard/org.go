package dashboard

import "context"

// OrgScope binds a client to one organization, giving the object compiler
// the narrow surface it needs without carrying org ids through every call.
type OrgScope struct {
	c     *Client
	orgID string
}

// Org returns an organization-scoped view of the client.
func (c *Client) Org(orgID string) *OrgScope {
	return &OrgScope{c: c, orgID: orgID}
}

// OrgID returns the bound organization id.
func (o *OrgScope) OrgID() string {
	return o.orgID
}

// ListPolicyObjects lists the organization's policy objects.
func (o *OrgScope) ListPolicyObjects(ctx context.Context) ([]PolicyObject, error) {
	return o.c.GetOrganizationPolicyObjects(ctx, o.orgID)
}

// ListPolicyObjectGroups lists the organization's policy object groups.
func (o *OrgScope) ListPolicyObjectGroups(ctx context.Context) ([]PolicyObjectGroup, error) {
	return o.c.GetOrganizationPolicyObjectsGroups(ctx, o.orgID)
}

// CreatePolicyObject creates a policy object in the organization.
func (o *OrgScope) CreatePolicyObject(ctx context.Context, req PolicyObjectRequest) (*PolicyObject, error) {
	return o.c.CreateOrganizationPolicyObject(ctx, o.orgID, req)
}

// CreatePolicyObjectGroup creates a policy object group in the organization.
func (o *OrgScope) CreatePolicyObjectGroup(ctx context.Context, name string, objectIDs []string) (*PolicyObjectGroup, error) {
	return o.c.CreateOrganizationPolicyObjectsGroup(ctx, o.orgID, name, objectIDs)
}
