package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"github.com/gin-gonic/gin"
)

const (
	RealtimeEventDonationRecorded = "donation-recorded"
	realtimeEventHeartbeat        = "heartbeat"
	realtimeSourceBackend         = "donor-api"
	defaultHeartbeatInterval      = 25 * time.Second
	defaultRealtimeBufferSize     = 16
)

type RealtimeMessage struct {
	EventType string
	Donation  donors.DonationEvent
	Timestamp time.Time
}

// RealtimeDispatcher fans accepted donations out to every stream subscriber.
// A subscriber whose buffer is full misses the message instead of blocking the publisher.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	done        chan struct{}
	closeOnce   sync.Once
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  defaultRealtimeBufferSize,
		done:        make(chan struct{}),
	}
}

// Close ends every open stream. Used on server shutdown so streams do not hold it open.
func (d *RealtimeDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}

// Done is closed once the dispatcher is closed.
func (d *RealtimeDispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	cleanup := func() {
		d.unregisterSubscriber(subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	if len(d.subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// DonationRecorded publishes an accepted donation to all subscribers.
func (d *RealtimeDispatcher) DonationRecorded(event donors.DonationEvent) {
	d.Publish(RealtimeMessage{
		EventType: RealtimeEventDonationRecorded,
		Donation:  event,
		Timestamp: event.Timestamp,
	})
}

// SubscriberCount reports the number of open subscriptions.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}

type donationEventPayload struct {
	ReferralCode   string  `json:"referralCode"`
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	TotalDonations float64 `json:"totalDonations"`
	Outcome        string  `json:"outcome"`
	Timestamp      string  `json:"timestamp"`
}

type heartbeatPayload struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

func (h *httpHandler) handleDonationStream(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-h.realtime.Done():
			return false
		case message := <-stream:
			c.SSEvent(message.EventType, donationEventPayload{
				ReferralCode:   message.Donation.ReferralCode,
				Name:           message.Donation.Name,
				Amount:         message.Donation.Amount,
				TotalDonations: message.Donation.TotalDonations,
				Outcome:        string(message.Donation.Outcome),
				Timestamp:      formatTimestamp(message.Timestamp),
			})
			return true
		case tick := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{
				Source:    realtimeSourceBackend,
				Timestamp: formatTimestamp(tick),
			})
			return true
		}
	})
}
