// ABOUTME: Tests for activity publishing against an embedded NATS server.
package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/2389-research/neurogems/activity"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNoopPublisher(t *testing.T) {
	pub, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := pub.(*NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
	if err := pub.Record(context.Background(), activity.Entry{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("expected nil close error, got %v", err)
	}
}

func TestNATSPublisherRecord(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(SubjectPrefix+">", ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	entry := activity.NewEntry(activity.ActionAddModel, "fusion-1", nil, "m (svc)")
	if err := pub.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := pub.Flush(); err != nil {
		t.Fatalf("publisher flush: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Subject != "neurogems.activity.add_model" {
			t.Fatalf("expected add_model subject, got %s", msg.Subject)
		}
		var got activity.Entry
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != entry.ID || got.Subject != "fusion-1" {
			t.Fatalf("expected entry %s for fusion-1, got %+v", entry.ID, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published entry")
	}
}

func TestConnectFailure(t *testing.T) {
	if _, err := NewNATSPublisher("nats://127.0.0.1:1", nats.Timeout(100*time.Millisecond), nats.MaxReconnects(0)); err == nil {
		t.Fatal("expected connect error")
	}
}
