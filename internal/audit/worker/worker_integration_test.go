//go:build integration

package worker_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"attestor/internal/audit"
	"attestor/internal/audit/worker"
	"attestor/pkg/testutil/containers"
)

const testTopic = "attestor.audit.test"

type OutboxWorkerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *audit.PostgresStore
}

func TestOutboxWorkerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxWorkerSuite))
}

func (s *OutboxWorkerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *OutboxWorkerSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_outbox", "audit_events")
	s.Require().NoError(err)
}

// TestOutboxDrainsToKafka covers the whole pipeline: events appended to the
// outbox are produced to the topic, acknowledged, and stamped published.
func (s *OutboxWorkerSuite) TestOutboxDrainsToKafka() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := worker.NewKafkaClient([]string{s.redpanda.Broker})
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(worker.EnsureTopic(ctx, producer, testTopic, 1))

	events := []audit.Event{
		{ID: uuid.New(), Timestamp: time.Now().UTC(), Actor: "0xabc", Action: audit.ActionCertificateIssued, Subject: "certificate 1"},
		{ID: uuid.New(), Timestamp: time.Now().UTC(), Actor: "0xabc", Action: audit.ActionCertificateRevoked, Subject: "certificate 1", Reason: "records error"},
	}
	for _, event := range events {
		s.Require().NoError(s.store.Append(ctx, event))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := worker.New(s.store, producer, testTopic, logger,
		worker.WithPollInterval(100*time.Millisecond),
	)

	workerCtx, stopWorker := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(workerCtx)
	}()

	consumer := s.redpanda.NewConsumer(s.T(), testTopic)

	received := map[string]string{}
	deadline := time.After(20 * time.Second)
	for len(received) < len(events) {
		select {
		case <-deadline:
			s.FailNow("timed out waiting for audit events on the topic")
		default:
		}

		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		fetches.EachRecord(func(record *kgo.Record) {
			var payload struct {
				ID     string `json:"ID"`
				Action string `json:"Action"`
			}
			s.Require().NoError(json.Unmarshal(record.Value, &payload))
			received[payload.ID] = payload.Action
			s.Equal(payload.Action, string(record.Key), "record key carries the event type")
		})
	}

	stopWorker()
	<-done

	for _, event := range events {
		s.Equal(event.Action, received[event.ID.String()])
	}

	// Drained entries must not be picked up again.
	s.Require().Eventually(func() bool {
		pending, err := s.store.PendingOutbox(context.Background(), 10)
		return err == nil && len(pending) == 0
	}, 5*time.Second, 100*time.Millisecond, "outbox should be stamped published")
}

// TestPendingSurvivesBrokerOutage verifies entries stay pending when the
// produce fails, ready for the next tick.
func (s *OutboxWorkerSuite) TestPendingSurvivesBrokerOutage() {
	ctx := context.Background()

	event := audit.Event{ID: uuid.New(), Timestamp: time.Now().UTC(), Action: audit.ActionInstitutionApproved, Subject: "0xdef"}
	s.Require().NoError(s.store.Append(ctx, event))

	pending, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(audit.ActionInstitutionApproved, pending[0].EventType)

	// Without a successful produce nothing is stamped.
	again, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Len(again, 1)
}
