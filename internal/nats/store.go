package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName = "agriwizard_snapshots"

	// publishTimeout bounds one observer publish so a stuck server never
	// blocks a wizard transition for long.
	publishTimeout = 2 * time.Second

	historyBatch = 256
)

// SubjectForSession returns the snapshot subject of one session.
// Example: "agriwizard.01HZX3.snapshot"
func SubjectForSession(sessionID string) string {
	return fmt.Sprintf("agriwizard.%s.snapshot", sessionID)
}

// SetupStream creates or updates the in-memory snapshot stream.
// Snapshots are kept for a day and at most 1000 per session.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              streamName,
		Subjects:          []string{"agriwizard.*.snapshot"},
		Storage:           jetstream.MemoryStorage,
		MaxAge:            24 * time.Hour,
		MaxMsgsPerSubject: 1000,
	})
}

// Bus publishes wizard snapshots and reads them back.
type Bus struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

// NewBus sets up the snapshot stream on nc.
func NewBus(ctx context.Context, nc *nats.Conn) (*Bus, error) {
	js, err := CreateJetStream(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}
	stream, err := SetupStream(ctx, js)
	if err != nil {
		return nil, fmt.Errorf("failed to set up snapshot stream: %w", err)
	}
	return &Bus{nc: nc, js: js, stream: stream}, nil
}

// Publish appends snap to its session's subject.
func (b *Bus) Publish(ctx context.Context, snap wizard.Snapshot) (*jetstream.PubAck, error) {
	if snap.SessionID == "" {
		return nil, errors.New("snapshot has no session id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	subject := SubjectForSession(snap.SessionID)
	ack, err := b.js.Publish(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to publish snapshot: %w", err)
	}
	logger.Debug("nats: published %s v%d seq=%d", subject, snap.Version, ack.Sequence)
	return ack, nil
}

// Observer returns a wizard.Observer that publishes every snapshot.
// Publish failures are logged and never reach the session.
func (b *Bus) Observer() wizard.Observer {
	return func(snap wizard.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := b.Publish(ctx, snap); err != nil {
			logger.Warn("nats: session %s: %v", snap.SessionID, err)
		}
	}
}

// History returns the retained snapshots of a session, oldest first.
func (b *Bus) History(ctx context.Context, sessionID string) ([]wizard.Snapshot, error) {
	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject:     SubjectForSession(sessionID),
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		if info := consumer.CachedInfo(); info != nil {
			_ = b.stream.DeleteConsumer(context.Background(), info.Name)
		}
	}()

	var history []wizard.Snapshot
	for {
		msgs, err := consumer.FetchNoWait(historyBatch)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var snap wizard.Snapshot
			if err := json.Unmarshal(msg.Data(), &snap); err != nil {
				logger.Warn("nats: skipping malformed snapshot on %s: %v", msg.Subject(), err)
				_ = msg.Ack()
				continue
			}
			history = append(history, snap)
			_ = msg.Ack()
		}

		if count < historyBatch {
			break
		}
	}

	logger.Debug("nats: loaded %d snapshots for session %s", len(history), sessionID)
	return history, nil
}

// Watch calls fn for every snapshot published for sessionID from now on.
// fn runs on the NATS dispatch goroutine. The returned function unsubscribes.
func (b *Bus) Watch(sessionID string, fn func(wizard.Snapshot)) (func() error, error) {
	sub, err := b.nc.Subscribe(SubjectForSession(sessionID), func(msg *nats.Msg) {
		var snap wizard.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			logger.Warn("nats: malformed snapshot on %s: %v", msg.Subject, err)
			return
		}
		fn(snap)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub.Unsubscribe, nil
}
