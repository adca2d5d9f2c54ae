package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func assertNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case payload := <-client.send:
		t.Fatalf("unexpected payload %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversOnlyToJoinedClients(t *testing.T) {
	hub := startHub(t)

	student := NewClient(hub, nil, 1)
	tutor := NewClient(hub, nil, 2)
	stranger := NewClient(hub, nil, 3)
	hub.Register(student)
	hub.Register(tutor)
	hub.Register(stranger)

	hub.Join(student, "session:9")
	hub.Join(tutor, "session:9")
	hub.Join(stranger, "session:10")

	require.NoError(t, hub.Publish(context.Background(), "session:9", []byte(`{"call_status":"active"}`)))

	assert.JSONEq(t, `{"call_status":"active"}`, string(receive(t, student)))
	assert.JSONEq(t, `{"call_status":"active"}`, string(receive(t, tutor)))
	assertNothing(t, stranger)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1)
	hub.Register(client)
	hub.Join(client, "session:4")
	hub.Leave(client, "session:4")

	require.NoError(t, hub.Publish(context.Background(), "session:4", []byte(`{}`)))
	assertNothing(t, client)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1)
	hub.Register(client)
	hub.Join(client, "session:4")
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubIgnoresJoinFromUnknownClient(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1)
	hub.Join(client, "session:4")

	require.NoError(t, hub.Publish(context.Background(), "session:4", []byte(`{}`)))
	assertNothing(t, client)
}

func TestHubCallsReturnAfterShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	client := NewClient(hub, nil, 1)
	done := make(chan struct{})
	go func() {
		hub.Register(client)
		hub.Join(client, "session:1")
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after shutdown")
	}
}
