package repository

import (
	"context"

	"servicelist-service/internal/domain/entity"
)

// ScrapeClient talks to the upstream scrape API. A forced fetch makes the
// upstream rescrape and rewrite the scraped document, which then arrives
// through the ServiceDayRepository watch.
type ScrapeClient interface {
	FetchDay(ctx context.Context, date, pin string, forceRefresh bool) (*entity.ServiceDay, error)
}
