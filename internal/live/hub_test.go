package live

import "testing"

func TestHubRoutesByOwner(t *testing.T) {
	h := NewHub()
	u1, cancel1 := h.Subscribe("u1")
	defer cancel1()
	u2, cancel2 := h.Subscribe("u2")
	defer cancel2()
	pub, cancelPub := h.Subscribe(Public)
	defer cancelPub()

	h.Publish(Event{Action: ActionCreated, TransactionID: "t1", UserID: "u1", Expense: true})
	h.Publish(Event{Action: ActionCreated, TransactionID: "t2", UserID: "u1", Expense: false})

	if got := len(u1); got != 2 {
		t.Fatalf("owner received %d events, want 2", got)
	}
	if got := len(u2); got != 0 {
		t.Fatalf("other user received %d events", got)
	}
	if got := len(pub); got != 1 {
		t.Fatalf("public received %d events, want 1", got)
	}
	e := <-pub
	if e.TransactionID != "t1" || e.At.IsZero() {
		t.Fatalf("public event = %+v", e)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("u1")
	defer cancel()

	for i := 0; i < defaultBuffer+5; i++ {
		h.Publish(Event{Action: ActionUpdated, UserID: "u1"})
	}
	if h.Dropped() != 5 {
		t.Fatalf("Dropped = %d, want 5", h.Dropped())
	}
}

func TestHubCancelAndClose(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d", h.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("Subscribers = %d", h.Subscribers())
	}

	other, cancelOther := h.Subscribe("u2")
	h.Close()
	if _, ok := <-other; ok {
		t.Fatal("channel should be closed after hub Close")
	}
	cancelOther()

	late, _ := h.Subscribe("u3")
	if _, ok := <-late; ok {
		t.Fatal("subscribing to a closed hub yields a closed channel")
	}
	h.Publish(Event{UserID: "u3"})
}
