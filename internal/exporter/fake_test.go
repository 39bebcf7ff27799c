package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/polaris"
)

// fakeAPI is an in-memory PolarisAPI.
type fakeAPI struct {
	mu sync.Mutex

	domains   []models.SLADomain
	events    []models.Event
	slaErr    error
	eventsErr error
	delay     time.Duration

	slaCalls   int
	eventCalls int
	lastFilter polaris.EventFilter
	closed     bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		domains: []models.SLADomain{
			{ID: testGoldID, Name: "Gold"},
			{ID: testSilverID, Name: "Silver"},
		},
		events: []models.Event{
			{ID: "1", LastActivityStatus: "Success", LastActivityType: "Backup", ObjectType: "VmwareVm"},
			{ID: "2", LastActivityStatus: "Success", LastActivityType: "Backup", ObjectType: "VmwareVm"},
			{ID: "3", LastActivityStatus: "Failure", LastActivityType: "Backup", ObjectType: "Mssql"},
		},
	}
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) SLADomains(ctx context.Context) ([]models.SLADomain, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slaCalls++
	if f.slaErr != nil {
		return nil, f.slaErr
	}
	return f.domains, nil
}

func (f *fakeAPI) Events(ctx context.Context, filter polaris.EventFilter) ([]models.Event, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls++
	f.lastFilter = filter
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeAPI) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeAPI) calls() (sla, events int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slaCalls, f.eventCalls
}

func testCollectorConfig() models.Config {
	var cfg models.Config
	cfg.Polaris.Domain = "acme"
	cfg.Polaris.Username = "operator@acme.example"
	cfg.Polaris.Password = "s3cr3t-passw0rd"
	cfg.Server.ScrapingInterval = "1h"
	return cfg
}
