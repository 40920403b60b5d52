//go:build integration

package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/awsford/deeplens-maze-solver/common/messaging"
	natsclient "github.com/awsford/deeplens-maze-solver/common/messaging/nats"
)

// setupTestNATS starts a JetStream-enabled NATS server and returns its URL.
func setupTestNATS(t *testing.T) string {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"-js"},
			WaitingFor: wait.ForLog("Server is ready").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	url, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		t.Fatalf("Failed to get NATS endpoint: %v", err)
	}
	return url
}

func connect(t *testing.T, url string) *natsclient.JetStreamClient {
	cfg := natsclient.DefaultConfig()
	cfg.URL = url
	client, err := natsclient.NewJetStreamClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func waitFor(t *testing.T, rec *recorder, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool { return len(rec.received()) >= n }, 5*time.Second, 20*time.Millisecond)
	return rec.received()
}

func TestFeedSubscriber_LiveNATS(t *testing.T) {
	client := connect(t, setupTestNATS(t))
	ctx := context.Background()

	rec := &recorder{}
	sub := NewFeedSubscriber(client, rec.handle, Config{Topic: messaging.TopicMazeEvents})
	require.NoError(t, sub.Start(ctx))

	for i := 1; i <= 3; i++ {
		require.NoError(t, client.Publish(ctx, messaging.SubjectMazeEvents, []byte(fmt.Sprintf("m%d", i))))
	}
	require.NoError(t, client.Flush(ctx))

	assert.Equal(t, []string{"m1", "m2", "m3"}, waitFor(t, rec, 3))

	require.NoError(t, sub.Stop())
	require.NoError(t, client.Publish(ctx, messaging.SubjectMazeEvents, []byte("late")))
	require.NoError(t, client.Flush(ctx))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, []string{"m1", "m2", "m3"}, rec.received())
}

func TestFeedSubscriber_ReplayNATS(t *testing.T) {
	client := connect(t, setupTestNATS(t))
	ctx := context.Background()

	_, err := client.CreateOrUpdateStream(ctx, natsclient.MazeEventsStream)
	require.NoError(t, err)

	for _, data := range []string{"backlog-1", "backlog-2"} {
		_, err := client.PublishSync(ctx, messaging.SubjectMazeEvents, []byte(data))
		require.NoError(t, err)
	}

	rec := &recorder{}
	sub := NewFeedSubscriber(client, rec.handle, Config{
		Replay: client,
		Stream: messaging.StreamMazeEvents,
	})
	require.NoError(t, sub.Start(ctx))
	defer sub.Stop()

	_, err = client.PublishSync(ctx, messaging.SubjectMazeEvents, []byte("live"))
	require.NoError(t, err)

	assert.Equal(t, []string{"backlog-1", "backlog-2", "live"}, waitFor(t, rec, 3))
}
