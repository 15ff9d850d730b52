package kafka

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("aqi"),
		Value:     []byte(`{"kind":"aqi","samples":[]}`),
		Topic:     "geo-samples",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte("aqi")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("aqi"), raw.Key)
	assert.JSONEq(t, `{"kind":"aqi","samples":[]}`, string(raw.Value))
	assert.Equal(t, "geo-samples", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "aqi", raw.Headers[domain.KindHeader])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	samples := []domain.Sample{domain.NewSample(domain.Fire, -3.4653, -62.2159, 1, "Amazon, Brazil", "500 MW")}
	out, err := domain.SerializeBatch(domain.Fire, samples)
	require.NoError(t, err)
	out.Headers["source"] = "genmock"

	msg := toMessage(out)

	assert.Equal(t, []byte("fire"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"fire"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("fire"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
}

func TestMessageRoundTrip(t *testing.T) {
	samples := []domain.Sample{domain.NewSample(domain.Temperature, 30.0444, 31.2357, 0.95, "Cairo, Egypt", "38°C")}
	out, err := domain.SerializeBatch(domain.Temperature, samples)
	require.NoError(t, err)

	raw := mapMessageToRawEvent(toMessage(out))
	kind, batch, err := domain.ParseRawEvent(raw)

	require.NoError(t, err)
	assert.Equal(t, domain.Temperature, kind)
	require.Len(t, batch.Samples, 1)
	assert.Equal(t, "Cairo, Egypt", batch.Samples[0].Label)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	w := &Writer{writer: &kafkago.Writer{}}
	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
