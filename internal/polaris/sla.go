package polaris

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/models"
)

// SLADomains returns every global SLA domain in response order.
func (c *Client) SLADomains(ctx context.Context) ([]models.SLADomain, error) {
	return c.slaDomains(ctx, "")
}

func (c *Client) slaDomains(ctx context.Context, name string) ([]models.SLADomain, error) {
	var vars map[string]any
	if name != "" {
		vars = map[string]any{
			"filter": []map[string]any{{"field": "NAME", "text": name}},
		}
	}

	records, err := c.list(ctx, keySLADomains, vars)
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.SLADomain](keySLADomains, records)
}

// LookupSLADomains maps SLA domain names to ids. With an empty name the map
// holds every domain; otherwise it holds the single domain whose name equals
// name exactly, or the call fails with a *NotFoundError.
func (c *Client) LookupSLADomains(ctx context.Context, name string) (map[string]string, error) {
	domains, err := c.slaDomains(ctx, name)
	if err != nil {
		return nil, err
	}

	if name == "" {
		all := make(map[string]string, len(domains))
		for _, d := range domains {
			all[d.Name] = d.ID
		}
		return all, nil
	}

	for _, d := range domains {
		if d.Name == name {
			return map[string]string{d.Name: d.ID}, nil
		}
	}
	return nil, &NotFoundError{Kind: "SLA domain", Name: name}
}

// SLADomainID returns the id of the SLA domain called name.
func (c *Client) SLADomainID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", &NotFoundError{Kind: "SLA domain", Name: name}
	}
	m, err := c.LookupSLADomains(ctx, name)
	if err != nil {
		return "", err
	}
	return m[name], nil
}
