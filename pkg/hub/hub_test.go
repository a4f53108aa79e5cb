package hub

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Event, buffer)}
	h.register <- c
	return c
}

func TestPublishReachesClients(t *testing.T) {
	h := New("signals")
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 8)
	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.Publish("signals", map[string]int{"frame": 1})

	select {
	case ev := <-c.send:
		if ev.Stream != "signals" {
			t.Errorf("stream = %q, want signals", ev.Stream)
		}
		if string(ev.Data) != `{"frame":1}` {
			t.Errorf("data = %s", ev.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never arrived")
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	h := New("flags")
	go h.Run()
	defer h.Stop()

	newTestClient(h, 1) // never drained
	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.Publish("flags", "first")  // fills the buffer
	h.Publish("flags", "second") // overflows it

	waitFor(t, func() bool { return h.ClientCount() == 0 }, "slow client never evicted")
}

func TestUnencodablePayloadIsDropped(t *testing.T) {
	h := New("alerts")
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 8)
	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.Publish("alerts", make(chan int)) // cannot be marshaled
	h.Publish("alerts", "ok")

	select {
	case ev := <-c.send:
		if string(ev.Data) != `"ok"` {
			t.Errorf("expected only the valid event, got %s", ev.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event never arrived")
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	h := New("perf")
	go h.Run()

	c := newTestClient(h, 8)
	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.Stop()
	h.Stop() // idempotent

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected the send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel never closed")
	}
	waitFor(t, func() bool { return h.ClientCount() == 0 }, "clients not cleared on stop")
}
