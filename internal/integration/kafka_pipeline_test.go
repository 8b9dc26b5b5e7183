//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/adapter/kafka"
	"github.com/couchcryptid/storm-exposure/internal/config"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/couchcryptid/storm-exposure/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-tracks"
	testSinkTopic   = "test-exposure"
)

// exposureMessage holds a deserialized message read from the sink topic.
type exposureMessage struct {
	Record  domain.ExposureRecord
	Key     string
	Headers map[string]string
}

func readExposure(ctx context.Context, t *testing.T, consumer *kafkago.Reader) exposureMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.ExposureRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal sink message")

	return exposureMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newTransformer(t *testing.T, points []domain.QueryPoint) *pipeline.ExposureTransformer {
	t.Helper()
	evaluator, err := exposure.NewEvaluator(exposure.DefaultParams(), exposure.WithLogger(discardLogger()))
	require.NoError(t, err)
	return pipeline.NewTransformer(evaluator, points, time.Minute, discardLogger())
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter round-trips a track through the reader, the
// transformer, and the writer.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	track := loadIda(t)
	points := loadTracts(t)
	payload, err := json.Marshal(domain.NewTrackMessage(track, points[:1]))
	require.NoError(t, err)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte(track.StormID), Value: payload}))

	// The consumer group may need a rebalance before partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte(track.StormID), raw.Key)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit)
	require.NoError(t, raw.Commit(ctx))

	records, err := newTransformer(t, nil).Transform(ctx, raw)
	require.NoError(t, err)
	require.Len(t, records, 1, "message points override the defaults")

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, records))

	msg := readExposure(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, records[0].ID, msg.Key)
	assert.Equal(t, "AL092021", msg.Headers["storm_id"])
	assert.NotEmpty(t, msg.Headers["wind_source"])
	assert.NotEmpty(t, msg.Headers["duration_source"])
	_, err = time.Parse(time.RFC3339, msg.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, points[0].ID, msg.Record.PointID)
	assert.Equal(t, "64kt", msg.Record.Threshold)
	assert.False(t, msg.Record.ClosestApproach.IsZero())
}

// TestPipelineEndToEnd runs the full pipeline against a broker and expects one
// record per configured point.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	track := loadIda(t)
	points := loadTracts(t)
	payload, err := json.Marshal(domain.NewTrackMessage(track, nil))
	require.NoError(t, err)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte(track.StormID), Value: payload}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, newTransformer(t, points), writer, discardLogger(), observability.NewMetricsForTesting(), 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := make(map[string]domain.ExposureRecord, len(points))
	for len(received) < len(points) {
		msg := readExposure(ctx, t, consumer)
		received[msg.Record.PointID] = msg.Record
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for _, pt := range points {
		rec, ok := received[pt.ID]
		require.True(t, ok, "missing record for %s", pt.ID)
		assert.Equal(t, "AL092021", rec.StormID)
		assert.GreaterOrEqual(t, rec.ExposureWindowHours, rec.DurationHours)
		assert.True(t, rec.LeadTimesValid)
	}
}

// TestPipelineTransformError verifies that a malformed message is skipped and
// the pipeline keeps processing.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	track := loadIda(t)
	points := loadTracts(t)
	valid, err := json.Marshal(domain.NewTrackMessage(track, points[:1]))
	require.NoError(t, err)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: valid},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, newTransformer(t, nil), writer, discardLogger(), observability.NewMetricsForTesting(), 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	msg := readExposure(ctx, t, consumer)
	assert.Equal(t, points[0].ID, msg.Record.PointID)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
