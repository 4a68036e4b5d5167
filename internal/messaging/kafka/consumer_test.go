package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

type stubSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *stubSession) Claims() map[string][]int32               { return nil }
func (s *stubSession) MemberID() string                         { return "member" }
func (s *stubSession) GenerationID() int32                      { return 1 }
func (s *stubSession) MarkOffset(string, int32, int64, string)  {}
func (s *stubSession) Commit()                                  {}
func (s *stubSession) ResetOffset(string, int32, int64, string) {}
func (s *stubSession) Context() context.Context                 { return s.ctx }
func (s *stubSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg)
}

type stubClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *stubClaim) Topic() string                            { return "topic" }
func (c *stubClaim) Partition() int32                         { return 0 }
func (c *stubClaim) InitialOffset() int64                     { return 0 }
func (c *stubClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *stubClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func testMessage(retries string) *sarama.ConsumerMessage {
	msg := &sarama.ConsumerMessage{Topic: "topic", Key: []byte("k"), Value: []byte("{}")}
	if retries != "" {
		msg.Headers = []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte(retries)}}
	}
	return msg
}

func TestNewConsumerWithDLQ_BadBroker(t *testing.T) {
	handler := func(context.Context, *sarama.ConsumerMessage) error { return nil }
	if _, err := NewConsumerWithDLQ([]string{"invalid-broker:9092"}, "group", []string{"topic"}, handler, nil, 3); err == nil {
		t.Fatal("expected error for unreachable broker")
	}
}

func TestConsumerSetupCleanup(t *testing.T) {
	consumer := &Consumer{}
	if err := consumer.Setup(nil); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := consumer.Cleanup(nil); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestConsumeClaim_MarksProcessedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim"),
	}

	session := &stubSession{ctx: ctx}
	claim := &stubClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- testMessage("")
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(session.marked) != 1 {
		t.Fatalf("marked = %d, want 1", len(session.marked))
	}
}

func TestConsumeClaim_LeavesFailedMessageUnmarked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := &Consumer{
		handler:    func(context.Context, *sarama.ConsumerMessage) error { return errors.New("boom") },
		logger:     log.WithField("test", "claim-fail"),
		maxRetries: 3,
	}

	session := &stubSession{ctx: ctx}
	claim := &stubClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- testMessage("")
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(session.marked) != 0 {
		t.Fatalf("failed message must stay unmarked, marked = %d", len(session.marked))
	}
}

func TestConsumeClaim_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim-stop"),
	}
	session := &stubSession{ctx: ctx}
	claim := &stubClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}

func TestProcess_RetryBelowLimit(t *testing.T) {
	consumer := &Consumer{
		handler:    func(context.Context, *sarama.ConsumerMessage) error { return errors.New("temporary") },
		logger:     log.WithField("test", "process-retry"),
		maxRetries: 3,
	}
	if err := consumer.process(context.Background(), testMessage("1")); err == nil {
		t.Fatal("expected error below retry limit to propagate")
	}
}

func TestProcess_MaxRetriesWithoutDLQ(t *testing.T) {
	consumer := &Consumer{
		handler:    func(context.Context, *sarama.ConsumerMessage) error { return errors.New("permanent") },
		logger:     log.WithField("test", "process-no-dlq"),
		maxRetries: 3,
	}
	if err := consumer.process(context.Background(), testMessage("3")); err == nil {
		t.Fatal("expected error when dlq is absent")
	}
}

func TestProcess_MovesToDLQAfterMaxRetries(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	consumer := &Consumer{
		handler:    func(context.Context, *sarama.ConsumerMessage) error { return errors.New("permanent") },
		dlq:        &Producer{sync: mockProducer, logger: log.WithField("test", "dlq")},
		logger:     log.WithField("test", "process-dlq"),
		maxRetries: 3,
	}
	if err := consumer.process(context.Background(), testMessage("3")); err != nil {
		t.Fatalf("message moved to dlq should not error: %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProcess_DLQPublishFailure(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	consumer := &Consumer{
		handler:    func(context.Context, *sarama.ConsumerMessage) error { return errors.New("permanent") },
		dlq:        &Producer{sync: mockProducer, logger: log.WithField("test", "dlq-fail")},
		logger:     log.WithField("test", "process-dlq-fail"),
		maxRetries: 3,
	}
	if err := consumer.process(context.Background(), testMessage("3")); err == nil {
		t.Fatal("expected dlq publish failure to propagate")
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRetryCount(t *testing.T) {
	if got := retryCount(testMessage("5")); got != 5 {
		t.Fatalf("retryCount = %d, want 5", got)
	}
	if got := retryCount(testMessage("bad")); got != 0 {
		t.Fatalf("invalid header should give 0, got %d", got)
	}
	if got := retryCount(testMessage("")); got != 0 {
		t.Fatalf("missing header should give 0, got %d", got)
	}
}
