package donors

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func mustSQLStore(testContext *testing.T) *SQLStore {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "donors.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	if err := database.AutoMigrate(&DonorRecord{}, &ContributionRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	testContext.Cleanup(func() {
		_ = sqlDB.Close()
	})
	store, err := NewSQLStore(database)
	if err != nil {
		testContext.Fatalf("failed to create store: %v", err)
	}
	return store
}

type steppingClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func newSteppingClock(start time.Time, step time.Duration) *steppingClock {
	return &steppingClock{current: start, step: step}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	value := c.current
	c.current = c.current.Add(c.step)
	return value
}

func (c *steppingClock) Set(value time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = value
}

func mustService(testContext *testing.T, store Store, clock func() time.Time, observers ...DonationObserver) *Service {
	testContext.Helper()
	service, err := NewService(ServiceConfig{
		Store:     store,
		Clock:     clock,
		Observers: observers,
	})
	if err != nil {
		testContext.Fatalf("failed to create service: %v", err)
	}
	return service
}

func mustDonate(testContext *testing.T, service *Service, name, email, amount string) DonationResult {
	testContext.Helper()
	result, err := service.SubmitDonation(context.Background(), DonationRequest{Name: name, Email: email, Amount: amount})
	if err != nil {
		testContext.Fatalf("submit donation failed: %v", err)
	}
	return result
}

type recordingObserver struct {
	mu     sync.Mutex
	events []DonationEvent
}

func (o *recordingObserver) DonationRecorded(event DonationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Events() []DonationEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]DonationEvent(nil), o.events...)
}
