package activity

import "context"

// ServiceActivityStats is the request-reply service exposing the counters.
const ServiceActivityStats = "activity-stats"

// StatsRequest is the request for the activity-stats service.
type StatsRequest struct{}

// StatsResponse is the response for the activity-stats service.
type StatsResponse struct {
	Snapshot
}

// ActivityPort is the view of activity offered to other modules.
type ActivityPort interface {
	Stats(ctx context.Context) (*StatsResponse, error)
}
