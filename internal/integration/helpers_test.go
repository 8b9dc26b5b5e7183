//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/couchcryptid/storm-exposure/internal/adapter/hurdat2"
	"github.com/couchcryptid/storm-exposure/internal/adapter/pointfile"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	kafkaImage    = "confluentinc/confluent-local:7.5.0"
	sampleHURDAT2 = "../adapter/hurdat2/testdata/sample.txt"
	sampleTracts  = "../adapter/pointfile/testdata/tracts.csv"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the test and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("storm-exposure-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// loadIda returns the cleaned Ida (2021) sample track.
func loadIda(t *testing.T) domain.StormTrack {
	t.Helper()
	storms, err := hurdat2.ParseFile(sampleHURDAT2)
	require.NoError(t, err)
	s, err := hurdat2.Lookup(storms, "AL092021")
	require.NoError(t, err)
	track, _, err := hurdat2.Clean(s)
	require.NoError(t, err)
	return track
}

func loadTracts(t *testing.T) []domain.QueryPoint {
	t.Helper()
	points, err := pointfile.Load(sampleTracts)
	require.NoError(t, err)
	return points
}
