package domain

import (
	requestdomain "equiplink/internal/servicerequest/domain"
)

// RequestOverview is a service request enriched for the cross-tenant console:
// tenant display names resolved, and a staleness flag so operators can spot
// bottlenecks without opening each request.
type RequestOverview struct {
	requestdomain.ServiceRequest

	TenantName   string
	ProviderName string // empty when unassigned
	Stale        bool   // non-terminal and idle past the staleness window
}
