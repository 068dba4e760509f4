// Package dashboard is a minimal Meraki Dashboard v1 REST client covering the
// operations a migration run needs: organization and network discovery,
// policy objects and groups, the three MX firewall rulesets, VLANs, and
// static routes.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the production Dashboard API endpoint.
const DefaultBaseURL = "https://api.meraki.com/api/v1"

const apiKeyHeader = "X-Cisco-Meraki-API-Key"

// APIError is a non-2xx response from the Dashboard. Transport errors abort
// the pipeline; the caller decides.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Meraki Dashboard. Creation calls are issued
// sequentially by the pipeline; the client itself is safe for reuse.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	cache   *ListingCache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests, regional shards).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCache attaches a listing cache for the org-wide policy object queries.
func WithCache(cache *ListingCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithRetryMax overrides the retry budget for rate-limited calls.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// New creates a Dashboard client. Rate-limit responses (429) are retried with
// the Retry-After interval the Dashboard supplies.
func New(apiKey string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = 5
	rc.Logger = nil

	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel=next`)

// do issues one request and decodes the response into out (if non-nil).
// Returns the Link rel=next URL for paginated listings, or "".
func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) (string, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return "", err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return "", fmt.Errorf("dashboard: decoding %s %s: %w", method, url, err)
		}
	}

	if m := linkNextRe.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
		return m[1], nil
	}
	return "", nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// list fetches a paginated collection, following Link rel=next headers.
// Each page is decoded into a fresh slice of T and appended.
func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	url := c.url(path)
	for url != "" {
		var page []T
		next, err := c.do(ctx, http.MethodGet, url, nil, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		url = next
	}
	return all, nil
}

// GetOrganizations lists the organizations visible to the API key.
func (c *Client) GetOrganizations(ctx context.Context) ([]Organization, error) {
	return list[Organization](ctx, c, "/organizations")
}

// GetOrganizationNetworks lists the networks in an organization.
func (c *Client) GetOrganizationNetworks(ctx context.Context, orgID string) ([]Network, error) {
	return list[Network](ctx, c, "/organizations/"+orgID+"/networks")
}

// GetOrganizationPolicyObjects lists all policy objects in an organization.
func (c *Client) GetOrganizationPolicyObjects(ctx context.Context, orgID string) ([]PolicyObject, error) {
	if c.cache != nil {
		var cached []PolicyObject
		if ok, _ := c.cache.Get(ctx, cacheKey(orgID, "objects"), &cached); ok {
			return cached, nil
		}
	}
	objects, err := list[PolicyObject](ctx, c, "/organizations/"+orgID+"/policyObjects")
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Put(ctx, cacheKey(orgID, "objects"), objects)
	}
	return objects, nil
}

// CreateOrganizationPolicyObject creates a policy object.
func (c *Client) CreateOrganizationPolicyObject(ctx context.Context, orgID string, req PolicyObjectRequest) (*PolicyObject, error) {
	var obj PolicyObject
	_, err := c.do(ctx, http.MethodPost, c.url("/organizations/"+orgID+"/policyObjects"), req, &obj)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Invalidate(ctx, cacheKey(orgID, "objects"))
	}
	return &obj, nil
}

// GetOrganizationPolicyObjectsGroups lists all policy object groups.
func (c *Client) GetOrganizationPolicyObjectsGroups(ctx context.Context, orgID string) ([]PolicyObjectGroup, error) {
	if c.cache != nil {
		var cached []PolicyObjectGroup
		if ok, _ := c.cache.Get(ctx, cacheKey(orgID, "groups"), &cached); ok {
			return cached, nil
		}
	}
	groups, err := list[PolicyObjectGroup](ctx, c, "/organizations/"+orgID+"/policyObjects/groups")
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Put(ctx, cacheKey(orgID, "groups"), groups)
	}
	return groups, nil
}

// CreateOrganizationPolicyObjectsGroup creates a policy object group.
func (c *Client) CreateOrganizationPolicyObjectsGroup(ctx context.Context, orgID, name string, objectIDs []string) (*PolicyObjectGroup, error) {
	req := map[string]interface{}{"name": name, "objectIds": objectIDs}
	var grp PolicyObjectGroup
	_, err := c.do(ctx, http.MethodPost, c.url("/organizations/"+orgID+"/policyObjects/groups"), req, &grp)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Invalidate(ctx, cacheKey(orgID, "groups"))
	}
	return &grp, nil
}

// rulesEnvelope wraps rule lists the way the appliance endpoints do.
type rulesEnvelope struct {
	Rules []FirewallRule `json:"rules"`
}

// GetNetworkApplianceFirewallL3FirewallRules reads the outbound L3 ruleset.
func (c *Client) GetNetworkApplianceFirewallL3FirewallRules(ctx context.Context, networkID string) ([]FirewallRule, error) {
	var env rulesEnvelope
	_, err := c.do(ctx, http.MethodGet, c.url("/networks/"+networkID+"/appliance/firewall/l3FirewallRules"), nil, &env)
	if err != nil {
		return nil, err
	}
	return env.Rules, nil
}

// UpdateNetworkApplianceFirewallL3FirewallRules replaces the outbound L3 ruleset.
func (c *Client) UpdateNetworkApplianceFirewallL3FirewallRules(ctx context.Context, networkID string, rules []FirewallRule) error {
	_, err := c.do(ctx, http.MethodPut, c.url("/networks/"+networkID+"/appliance/firewall/l3FirewallRules"), rulesEnvelope{Rules: rules}, nil)
	return err
}

// UpdateNetworkApplianceFirewallInboundFirewallRules replaces the inbound ruleset.
func (c *Client) UpdateNetworkApplianceFirewallInboundFirewallRules(ctx context.Context, networkID string, rules []FirewallRule) error {
	_, err := c.do(ctx, http.MethodPut, c.url("/networks/"+networkID+"/appliance/firewall/inboundFirewallRules"), rulesEnvelope{Rules: rules}, nil)
	return err
}

// UpdateOrganizationApplianceVpnVpnFirewallRules replaces the org-wide
// site-to-site VPN ruleset.
func (c *Client) UpdateOrganizationApplianceVpnVpnFirewallRules(ctx context.Context, orgID string, rules []FirewallRule) error {
	_, err := c.do(ctx, http.MethodPut, c.url("/organizations/"+orgID+"/appliance/vpn/vpnFirewallRules"), rulesEnvelope{Rules: rules}, nil)
	return err
}

// GetNetworkApplianceVlans lists the appliance VLANs of a network.
func (c *Client) GetNetworkApplianceVlans(ctx context.Context, networkID string) ([]VLAN, error) {
	return list[VLAN](ctx, c, "/networks/"+networkID+"/appliance/vlans")
}

// CreateNetworkApplianceVlan creates an appliance VLAN.
func (c *Client) CreateNetworkApplianceVlan(ctx context.Context, networkID string, vlan VLAN) error {
	_, err := c.do(ctx, http.MethodPost, c.url("/networks/"+networkID+"/appliance/vlans"), vlan, nil)
	return err
}

// GetNetworkApplianceStaticRoutes lists the appliance static routes.
func (c *Client) GetNetworkApplianceStaticRoutes(ctx context.Context, networkID string) ([]StaticRoute, error) {
	return list[StaticRoute](ctx, c, "/networks/"+networkID+"/appliance/staticRoutes")
}

// CreateNetworkApplianceStaticRoute creates an appliance static route.
func (c *Client) CreateNetworkApplianceStaticRoute(ctx context.Context, networkID string, route StaticRoute) error {
	_, err := c.do(ctx, http.MethodPost, c.url("/networks/"+networkID+"/appliance/staticRoutes"), route, nil)
	return err
}

func cacheKey(orgID, kind string) string {
	return "swmx|" + orgID + "|" + kind
}
