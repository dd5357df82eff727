package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/events"
)

func testConfig() config.NotifyConfig {
	return config.NotifyConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "ynabd@example.com",
		To:       []string{"me@example.com"},
	}
}

func TestNewUnconfigured(t *testing.T) {
	assert.Nil(t, New(config.NotifyConfig{}, "YNAB"))
	assert.Nil(t, New(config.NotifyConfig{SMTPHost: "smtp.example.com"}, "YNAB"))
	assert.NotNil(t, New(testConfig(), "YNAB"))
}

func TestMessage(t *testing.T) {
	n := New(testConfig(), "Home")
	ev := events.Event{
		ID:        "abc",
		Seq:       7,
		Topic:     events.TopicImported,
		Timestamp: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC),
		Data:      map[string]any{events.DataTransactionsImported: 3},
	}

	msg := n.Message(ev)
	require.NotNil(t, msg)
	assert.Equal(t, "ynabd@example.com", msg.From)
	assert.Equal(t, []string{"me@example.com"}, msg.To)
	assert.Equal(t, "[Home] 3 new transactions imported", msg.Subject)
	assert.Contains(t, string(msg.Text), "2024-05-17 09:00:00 UTC")
	assert.Contains(t, string(msg.Text), "seq 7")

	ev.Data[events.DataTransactionsImported] = 1
	assert.Equal(t, "[Home] 1 new transaction imported", n.Message(ev).Subject)
}

func TestMessageIgnored(t *testing.T) {
	n := New(testConfig(), "Home")
	tests := []events.Event{
		{Topic: events.TopicStateChanged},
		{Topic: events.TopicImported},
		{Topic: events.TopicImported, Data: map[string]any{events.DataTransactionsImported: 0}},
		{Topic: events.TopicImported, Data: map[string]any{events.DataTransactionsImported: "3"}},
	}
	for _, ev := range tests {
		assert.Nil(t, n.Message(ev), "event %+v", ev)
	}
}

func TestRunSendsImports(t *testing.T) {
	n := New(testConfig(), "Home")

	var mu sync.Mutex
	var sent []*email.Email
	done := make(chan struct{}, 4)
	n.send = func(e *email.Email) error {
		mu.Lock()
		sent = append(sent, e)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	bus := events.NewBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		n.Run(ctx, bus)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.TopicStateChanged, nil)
	bus.Publish(events.TopicImported, map[string]any{events.DataTransactionsImported: 2})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no mail sent")
	}

	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Equal(t, "[Home] 2 new transactions imported", sent[0].Subject)
	assert.Equal(t, 0, bus.SubscriberCount())
}
