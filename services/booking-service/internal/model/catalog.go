package model

// Catalog entities are owned by the catalog service and replicated here via
// Kafka; the booking engine treats them as read-only.

type Service struct {
	ID              string
	TenantID        string
	Name            string
	Active          bool
	DurationMinutes int // base duration when no variant is given; 0 = unset
	PriceCents      int64
}

type ServiceVariant struct {
	ID              string
	ServiceID       string
	Name            string
	DurationMinutes int
	PriceCents      int64
}

type Customer struct {
	ID       string
	TenantID string
	Name     string
	Phone    string
}
