package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/mark3labs/commitloop/internal/loop"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName = "commitloop_events"

	KindState = "state"
	KindEvent = "event"

	flushTimeout = 2 * time.Second

	// historyResets bounds how often the ordered consumer may recreate
	// itself before History gives up.
	historyResets = 3
)

// ErrClosed is returned by operations on a closed Bus.
var ErrClosed = errors.New("event bus closed")

// SubjectForSession returns the wildcard subject for all messages of a
// session, e.g. "commitloop.refactor.>".
func SubjectForSession(session string) string {
	return fmt.Sprintf("commitloop.%s.>", session)
}

// SubjectFor returns the subject for one kind of message in a session,
// e.g. "commitloop.refactor.event".
func SubjectFor(session, kind string) string {
	return fmt.Sprintf("commitloop.%s.%s", session, kind)
}

// SetupStream creates or updates the memory stream that keeps the event log
// for the lifetime of the process.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"commitloop.>"},
		Storage:  jetstream.MemoryStorage,
		MaxMsgs:  10000,
	})
}

// Bus carries loop state and events for one session.
type Bus struct {
	session  string
	storeDir string
	ns       *server.Server
	nc       *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	subs     []*nats.Subscription

	mu     sync.Mutex
	closed bool
}

// Open starts the embedded server and prepares the stream. session must be
// a valid subject token.
func Open(ctx context.Context, session string) (*Bus, error) {
	if session == "" || strings.ContainsAny(session, ".*> \t") {
		return nil, fmt.Errorf("invalid session name %q", session)
	}

	storeDir, err := os.MkdirTemp("", "commitloop-nats-")
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS store dir: %w", err)
	}

	b := &Bus{session: session, storeDir: storeDir}
	if b.ns, err = StartEmbeddedNATS(storeDir); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start NATS: %w", err)
	}
	if b.nc, err = ConnectInProcess(b.ns); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if b.js, err = CreateJetStream(b.nc); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create JetStream: %w", err)
	}
	if b.stream, err = SetupStream(ctx, b.js); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to set up stream: %w", err)
	}
	return b, nil
}

// Session returns the session name the bus publishes under.
func (b *Bus) Session() string {
	return b.session
}

// StateChanged publishes s. It implements loop.Observer.
func (b *Bus) StateChanged(s loop.State) {
	b.publish(KindState, s)
}

// Event publishes e. It implements loop.Observer.
func (b *Bus) Event(e loop.Event) {
	b.publish(KindEvent, e)
}

// publish hands the message to JetStream without waiting for the ack, so the
// loop goroutine never stalls on the bus. Flush waits for outstanding acks.
func (b *Bus) publish(kind string, v any) {
	if b.isClosed() {
		logger.Debug("Dropping %s published after close", kind)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode %s: %v", kind, err)
		return
	}

	if _, err := b.js.PublishAsync(SubjectFor(b.session, kind), data); err != nil {
		logger.Warn("Failed to publish %s: %v", kind, err)
	}
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Subscribe forwards live state and events to obs. Delivery happens on a
// NATS goroutine.
func (b *Bus) Subscribe(obs loop.Observer) error {
	sub, err := b.nc.Subscribe(SubjectForSession(b.session), func(msg *nats.Msg) {
		switch {
		case strings.HasSuffix(msg.Subject, "."+KindState):
			var s loop.State
			if err := json.Unmarshal(msg.Data, &s); err != nil {
				logger.Warn("Skipping malformed state: %v", err)
				return
			}
			obs.StateChanged(s)
		case strings.HasSuffix(msg.Subject, "."+KindEvent):
			var e loop.Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				logger.Warn("Skipping malformed event: %v", err)
				return
			}
			obs.Event(e)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// History returns the events published so far, oldest first. It gives up
// when ctx is done, even if the fetch is still retrying.
func (b *Bus) History(ctx context.Context) ([]loop.Event, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reading event history: %w", err)
	}

	type result struct {
		events []loop.Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := b.readHistory(ctx)
		done <- result{events, err}
	}()

	select {
	case r := <-done:
		return r.events, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("reading event history: %w", ctx.Err())
	}
}

func (b *Bus) readHistory(ctx context.Context) ([]loop.Event, error) {
	consumer, err := b.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects:   []string{SubjectFor(b.session, KindEvent)},
		DeliverPolicy:    jetstream.DeliverAllPolicy,
		MaxResetAttempts: historyResets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	const batchSize = 500
	var events []loop.Event
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var e loop.Event
			if err := json.Unmarshal(msg.Data(), &e); err != nil {
				logger.Warn("Skipping malformed event in history: %v", err)
				continue
			}
			events = append(events, e)
		}
		if count < batchSize {
			break
		}
	}
	return events, nil
}

// Flush waits until everything published so far is stored and has reached
// subscribers.
func (b *Bus) Flush() error {
	if b.isClosed() {
		return ErrClosed
	}

	select {
	case <-b.js.PublishAsyncComplete():
	case <-time.After(flushTimeout):
		return fmt.Errorf("%d publish(es) still pending after %s", b.js.PublishAsyncPending(), flushTimeout)
	}
	return b.nc.FlushTimeout(flushTimeout)
}

// Close stops the server and removes its store directory.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	err := Shutdown(b.nc, b.ns)
	b.nc, b.ns = nil, nil
	if b.storeDir != "" {
		_ = os.RemoveAll(b.storeDir)
		b.storeDir = ""
	}
	return err
}
