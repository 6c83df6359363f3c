package storage

import (
	"context"

	"ev-subsidy-scraper/models"
)

// RegionSink receives one region's cleaned vehicles as soon as it is scraped
type RegionSink interface {
	WriteRegion(ctx context.Context, year int, region models.Region, vehicles []models.Vehicle) error
}

// Publisher uploads produced files to remote storage
type Publisher interface {
	Publish(ctx context.Context, paths []string) ([]string, error)
}
