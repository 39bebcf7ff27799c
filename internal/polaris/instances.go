package polaris

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjacquet/rubrik_polaris/internal/models"
)

// Provider is a cloud provider with native protection.
type Provider string

// Supported providers.
const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

var providerKeys = map[Provider]string{
	ProviderAWS:   keyAWSInstances,
	ProviderAzure: keyAzureVMs,
	ProviderGCP:   keyGCPInstances,
}

// ParseProvider accepts aws, azure or gcp in any case.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := providerKeys[p]; !ok {
		return "", fmt.Errorf("polaris: unknown cloud provider %q (valid choices are aws, azure, gcp)", s)
	}
	return p, nil
}

func (p Provider) catalogKey() (string, error) {
	key, ok := providerKeys[p]
	if !ok {
		return "", fmt.Errorf("polaris: unknown cloud provider %q", string(p))
	}
	return key, nil
}

// CloudInstanceRecords returns the provider's instances as normalized records.
func (c *Client) CloudInstanceRecords(ctx context.Context, p Provider) ([]Record, error) {
	_, records, err := c.instanceRecords(ctx, p)
	return records, err
}

// instanceRecords resolves the provider's catalog key and lists its records.
func (c *Client) instanceRecords(ctx context.Context, p Provider) (string, []Record, error) {
	key, err := p.catalogKey()
	if err != nil {
		return "", nil, err
	}
	records, err := c.list(ctx, key, nil)
	if err != nil {
		return "", nil, err
	}
	return key, records, nil
}

// CloudInstances lists the provider's instances.
func (c *Client) CloudInstances(ctx context.Context, p Provider) ([]models.CloudInstance, error) {
	key, records, err := c.instanceRecords(ctx, p)
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.CloudInstance](key, records)
}

// FilterCloudInstances returns the ids of the provider's instances that
// satisfy criteria under mode.
func (c *Client) FilterCloudInstances(ctx context.Context, p Provider, criteria Criteria, mode MatchMode) ([]string, error) {
	records, err := c.CloudInstanceRecords(ctx, p)
	if err != nil {
		return nil, err
	}
	return MatchRecords(records, "id", criteria, mode), nil
}
