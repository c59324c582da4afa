package pubsub

import "testing"

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := New[int]()

	var order []string
	bus.Subscribe(func(int) { order = append(order, "first") })
	bus.Subscribe(func(int) { order = append(order, "second") })

	bus.Publish(1)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected in-order delivery, got %v", order)
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := New[string]()
	bus.Publish("nobody listening") // must not panic
}

func TestBus_NilHandlerIgnored(t *testing.T) {
	bus := New[int]()
	bus.Subscribe(nil)
	bus.Publish(1) // must not panic
}

func TestBus_EveryEventToEverySubscriber(t *testing.T) {
	bus := New[int]()

	var a, b int
	bus.Subscribe(func(v int) { a += v })
	bus.Subscribe(func(v int) { b += v })

	bus.Publish(1)
	bus.Publish(2)

	if a != 3 || b != 3 {
		t.Errorf("expected both subscribers to see all events, got a=%d b=%d", a, b)
	}
}
