package enums

// IntegrationProvider names an external account linked through OAuth.
type IntegrationProvider string

const (
	IntegrationSplitwise IntegrationProvider = "splitwise"
)

func (p IntegrationProvider) IsValid() bool {
	return p == IntegrationSplitwise
}
