package telemetry

// Error message templates for failures that need operator action. Each one
// names the likely causes and what to check.
const (
	// ErrNonJSONResponseTemplate is logged when the GraphQL endpoint answers with something other than JSON
	ErrNonJSONResponseTemplate = `Polaris returned a non-JSON response (status: %d, Content-Type: %s).

This usually indicates:
1. Wrong tenant domain or root domain (check 'polaris.domain' and 'polaris.rootDomain' in config.yaml)
2. A proxy or load balancer error page in front of Polaris
3. An expired or revoked session token

Request URL: %s
Response preview: %s`

	// ErrAuthenticationTemplate is logged when the session endpoint rejects the credential exchange
	ErrAuthenticationTemplate = `Polaris rejected the session request for domain %q (status: %d).

Troubleshooting steps:
1. Verify 'polaris.username' and 'polaris.password' in config.yaml
2. Check that the account is a local (non-SSO) service account with API access
3. Confirm the tenant URL: %s`
)
