//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/audit/store/kafka"
	"trustboard/pkg/testutil/containers"
)

func TestKafkaStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "trustboard.audit.it"
	store, client, err := kafka.New(rp.Brokers, topic)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, client, topic, 1, 1))
	require.NoError(t, kafka.EnsureTopic(ctx, client, topic, 1, 1))

	require.NoError(t, store.Append(ctx, audit.Event{
		Action:   string(audit.EventVerificationCompleted),
		QueryID:  "q-1",
		Decision: "verified",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)
	require.Equal(t, "q-1", string(records[0].Key))

	var payload audit.Payload
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	require.Equal(t, "verified", payload.Decision)
}
