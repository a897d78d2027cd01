package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func TenantStatusKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("tenant:status:%s", tenantID)
}

func RateLimitKey(tenantID, userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s:%s", tenantID, userID)
}

func TemplateUsageKey(tenantID, templateID uuid.UUID) string {
	return fmt.Sprintf("template:usage:%s:%s", tenantID, templateID)
}
