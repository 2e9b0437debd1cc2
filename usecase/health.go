package usecase

import (
	"context"
	"time"

	domainHealth "github.com/AzielCF/az-crm/domains/health"
	"github.com/AzielCF/az-crm/infrastructure/events"
	"github.com/AzielCF/az-crm/infrastructure/valkey"
	"gorm.io/gorm"
)

type serviceHealth struct {
	db      *gorm.DB
	cache   *valkey.Client
	broker  events.Publisher
	version string
}

func NewHealthService(db *gorm.DB, cache *valkey.Client, broker events.Publisher, version string) domainHealth.IHealthUsecase {
	return &serviceHealth{db: db, cache: cache, broker: broker, version: version}
}

func (service *serviceHealth) Check(ctx context.Context) domainHealth.Report {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	report := domainHealth.Report{Healthy: true, Version: service.version}

	dbStatus := domainHealth.ComponentStatus{Name: "database", Healthy: true}
	if sqlDB, err := service.db.DB(); err != nil {
		dbStatus.Healthy = false
		dbStatus.Detail = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus.Healthy = false
		dbStatus.Detail = err.Error()
	}
	if !dbStatus.Healthy {
		report.Healthy = false
	}
	report.Components = append(report.Components, dbStatus)

	if service.cache != nil {
		cacheStatus := domainHealth.ComponentStatus{Name: "valkey", Healthy: true}
		if err := service.cache.Ping(ctx); err != nil {
			// The resolver falls back to the database when the cache is down,
			// so a valkey outage degrades but does not fail the service.
			cacheStatus.Healthy = false
			cacheStatus.Detail = err.Error()
		}
		report.Components = append(report.Components, cacheStatus)
	}

	if service.broker != nil {
		brokerStatus := domainHealth.ComponentStatus{Name: "broker", Healthy: true}
		if !service.broker.Healthy() {
			// A broker outage only silences realtime fan-out; the API keeps
			// accepting webhooks and sends.
			brokerStatus.Healthy = false
			brokerStatus.Detail = "event transport connection is closed"
		}
		report.Components = append(report.Components, brokerStatus)
	}

	return report
}
