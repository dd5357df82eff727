package events

import (
	"testing"
	"time"
)

func TestPublishRingBuffer(t *testing.T) {
	b := NewBus(2)

	b.Publish(TopicImported, nil)
	b.Publish(TopicImported, nil)
	b.Publish(TopicStateChanged, nil)

	events := b.Recent()
	if len(events) != 2 {
		t.Fatalf("events len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("ring contains seqs [%d, %d], want [2, 3]", events[0].Seq, events[1].Seq)
	}
	if events[1].Topic != TopicStateChanged {
		t.Fatalf("last topic = %q, want %q", events[1].Topic, TopicStateChanged)
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Fatal("events should carry distinct ids")
	}
}

func TestSubscribeReceives(t *testing.T) {
	b := NewBus(10)
	id, ch := b.Subscribe(4)
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", b.SubscriberCount())
	}

	b.Publish(TopicImported, map[string]any{DataTransactionsImported: 3})

	select {
	case ev := <-ch:
		if ev.Data[DataTransactionsImported] != 3 {
			t.Fatalf("data = %v, want transactions_imported=3", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	b.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", b.SubscriberCount())
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus(10)
	_, ch := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(TopicStateChanged, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(ch))
	}
}
