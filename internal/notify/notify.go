// Package notify publishes accepted train snapshots to an AMQP queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// DefaultQueue is the queue snapshots are published to
const DefaultQueue = "ciphertrack.status"

// Message is the JSON body of a published snapshot
type Message struct {
	SessionID        string    `json:"session_id"`
	TrainNumber      string    `json:"train_number"`
	TrainName        string    `json:"train_name"`
	CurrentLocation  string    `json:"current_location"`
	DelayMinutes     int       `json:"delay_minutes"`
	Delayed          bool      `json:"delayed"`
	DistanceTraveled float64   `json:"distance_traveled"`
	ProgressPercent  float64   `json:"progress_percent"`
	SegmentIndex     int       `json:"segment_index"`
	Manual           bool      `json:"manual_refresh"`
	ObservedAt       time.Time `json:"observed_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewMessage builds the message for a view. Only ready views carry a snapshot
// worth publishing; ok is false for everything else.
func NewMessage(view models.View) (msg Message, ok bool) {
	snap := view.State.Snapshot
	if view.State.Phase != models.PhaseReady || snap == nil {
		return Message{}, false
	}

	return Message{
		SessionID:        view.State.SessionID,
		TrainNumber:      snap.EntityID,
		TrainName:        snap.DisplayName,
		CurrentLocation:  view.CurrentLocation,
		DelayMinutes:     snap.DelayMinutes,
		Delayed:          view.Delayed,
		DistanceTraveled: snap.DistanceTraveled,
		ProgressPercent:  view.ProgressPercent,
		SegmentIndex:     view.Position.SegmentIndex,
		Manual:           view.State.Manual,
		ObservedAt:       snap.ObservedAt,
		UpdatedAt:        view.State.LastUpdatedAt,
	}, true
}

// Channel is the part of *amqp.Channel the notifier uses
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Notifier publishes each newly accepted snapshot once. Publish never blocks:
// when the broker is slow, older pending snapshots are replaced by newer ones.
type Notifier struct {
	channel Channel
	queue   string
	logger  *zap.SugaredLogger

	pending chan Message
	stop    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	lastSeen time.Time
	session  string
	closers  []func() error
}

// New starts a notifier publishing on channel
func New(channel Channel, queue string, logger *zap.SugaredLogger) *Notifier {
	if queue == "" {
		queue = DefaultQueue
	}
	n := &Notifier{
		channel: channel,
		queue:   queue,
		logger:  logger,
		pending: make(chan Message, 1),
		stop:    make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Dial connects to the broker at url, declares queue and starts a notifier
func Dial(url, queue string, logger *zap.SugaredLogger) (*Notifier, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, false, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	n := New(ch, queue, logger)
	n.closers = append(n.closers, ch.Close, conn.Close)
	return n, nil
}

// Publish queues the view's snapshot if it has not been published yet
func (n *Notifier) Publish(view models.View) {
	msg, ok := NewMessage(view)
	if !ok {
		return
	}

	n.mu.Lock()
	if msg.SessionID == n.session && !msg.UpdatedAt.After(n.lastSeen) {
		n.mu.Unlock()
		return
	}
	n.session = msg.SessionID
	n.lastSeen = msg.UpdatedAt
	n.mu.Unlock()

	for {
		select {
		case n.pending <- msg:
			return
		default:
		}
		// drop the stale pending message and retry
		select {
		case <-n.pending:
		default:
		}
	}
}

// Close stops publishing and closes the broker connection
func (n *Notifier) Close() error {
	close(n.stop)
	n.wg.Wait()

	var firstErr error
	for _, closeFn := range n.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case msg := <-n.pending:
			n.send(msg)
		case <-n.stop:
			return
		}
	}
}

func (n *Notifier) send(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warnw("error encoding snapshot message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		n.logger.Warnw("error publishing message to RabbitMQ", "queue", n.queue, "error", err)
		return
	}
	n.logger.Debugw("Published snapshot", "queue", n.queue, "train", msg.TrainNumber)
}
