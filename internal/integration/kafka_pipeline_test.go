//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/sqlstore"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-team-weather"

// publishedRecord is a canonical record read back from the topic.
type publishedRecord struct {
	Record  domain.CanonicalRecord
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRecord {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.CanonicalRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal message")

	return publishedRecord{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestPipelineEndToEnd runs the team fixtures through the pipeline into a real
// Kafka broker and a SQLite store, then reads both back.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reader := csvfile.NewReader(filepath.Join("..", "pipeline", "testdata", "team"), discardLogger())
	p := pipeline.New(reader, []pipeline.Loader{writer, store}, discardLogger(), observability.NewMetricsForTesting())

	ds, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, ds.Records, 4)

	stored, err := store.CountRun(ctx, ds.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byMember := make(map[string]publishedRecord)
	for range ds.Records {
		pr := readPublished(ctx, t, consumer)
		assert.Equal(t, ds.RunID, pr.Headers["run_id"])
		assert.Equal(t, pr.Record.MemberName, pr.Headers["member_name"])
		byMember[pr.Record.MemberName] = pr
	}

	bob := byMember["Bob"]
	assert.Equal(t, "Bob|Boston|2024-06-01 08:00", bob.Key)
	require.NotNil(t, bob.Record.Temperature)
	assert.InDelta(t, 20.0, *bob.Record.Temperature, 1e-9)
	assert.Equal(t, "sunny morning", bob.Record.Extra["Notes"])

	carol := byMember["Carolina"]
	assert.Equal(t, "Lima", carol.Record.City)
	assert.Nil(t, carol.Record.Temperature)
}
