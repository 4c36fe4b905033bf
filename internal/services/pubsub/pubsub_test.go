package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicDisplay, 10)
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if sub.Topic != TopicDisplay {
		t.Errorf("Expected topic %s, got %s", TopicDisplay, sub.Topic)
	}
	if cap(sub.Channel) != 10 {
		t.Errorf("Expected channel buffer size 10, got %d", cap(sub.Channel))
	}
	if count := ps.SubscriberCount(TopicDisplay); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	other := ps.Subscribe(TopicDisplay, 0)
	if other.ID == sub.ID {
		t.Error("Expected distinct subscriber IDs")
	}
	if cap(other.Channel) != 1 {
		t.Errorf("Expected minimum buffer size 1, got %d", cap(other.Channel))
	}
}

func TestUnsubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicWiFiStatus, 10)
	ps.Unsubscribe(sub)

	if count := ps.SubscriberCount(TopicWiFiStatus); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}

	select {
	case _, ok := <-sub.Channel:
		if ok {
			t.Error("Channel should be closed after unsubscribe")
		}
	default:
		t.Error("Channel should be closed and readable")
	}

	// Second unsubscribe must not close the channel again.
	ps.Unsubscribe(sub)
}

func TestPublish(t *testing.T) {
	ps := New()

	display := ps.Subscribe(TopicDisplay, 10)
	fetch := ps.Subscribe(TopicFetchStatus, 10)

	ps.Publish(TopicDisplay, "frame")

	select {
	case msg := <-display.Channel:
		if msg != "frame" {
			t.Errorf("Expected 'frame', got '%v'", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timed out waiting for message")
	}

	select {
	case msg := <-fetch.Channel:
		t.Errorf("Fetch subscriber should not receive display messages, got %v", msg)
	default:
	}
}

func TestPublish_ChannelFull(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicDisplay, 1)

	ps.Publish(TopicDisplay, "msg1")

	done := make(chan bool, 1)
	go func() {
		ps.Publish(TopicDisplay, "msg2")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Publish blocked on full channel")
	}

	if msg := <-sub.Channel; msg != "msg1" {
		t.Errorf("Expected 'msg1', got '%v'", msg)
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := ps.Subscribe(TopicDisplay, 4)
			select {
			case <-sub.Channel:
			case <-time.After(20 * time.Millisecond):
			}
			ps.Unsubscribe(sub)
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ps.Publish(TopicDisplay, i)
		}(i)
	}

	wg.Wait()
	if count := ps.SubscriberCount(TopicDisplay); count != 0 {
		t.Errorf("Expected 0 subscribers, got %d", count)
	}
}

func TestTopicConstants(t *testing.T) {
	topics := []Topic{TopicDisplay, TopicFetchStatus, TopicWiFiStatus}

	seen := make(map[Topic]bool)
	for _, topic := range topics {
		if seen[topic] {
			t.Errorf("Duplicate topic: %s", topic)
		}
		seen[topic] = true
	}
}
