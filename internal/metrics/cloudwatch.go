package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace             = "MIDIGEN/API"
	httpStatusServerError = 500
	cloudwatchTimeout     = 5 * time.Second
)

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics. Every Record call
// returns immediately; data points are sent in the background.
type Client struct {
	client      putMetricDataAPI
	enabled     bool
	environment string
	inflight    sync.WaitGroup
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string, enabled bool) (*Client, error) {
	if !enabled {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{environment: environment}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{environment: environment}, nil
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)
	return &Client{
		client:      cloudwatch.NewFromConfig(cfg),
		enabled:     true,
		environment: environment,
	}, nil
}

func (m *Client) dimensions(extra ...types.Dimension) []types.Dimension {
	return append(extra, types.Dimension{
		Name:  aws.String("Environment"),
		Value: aws.String(m.environment),
	})
}

func dimension(name, value string) types.Dimension {
	return types.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	metricName := "APIRequests"
	if statusCode >= httpStatusServerError {
		metricName = "APIErrors"
	}
	dims := m.dimensions(dimension("Endpoint", endpoint))

	m.send(
		datum(metricName, 1, types.StandardUnitCount, dims),
		datum("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims),
	)
}

// RecordTokenUsage records AI token usage per model
func (m *Client) RecordTokenUsage(model string, totalTokens, inputTokens, outputTokens int) {
	dims := m.dimensions(dimension("Model", model))
	m.send(
		datum("AITokens/Total", float64(totalTokens), types.StandardUnitCount, dims),
		datum("AITokens/Input", float64(inputTokens), types.StandardUnitCount, dims),
		datum("AITokens/Output", float64(outputTokens), types.StandardUnitCount, dims),
	)
}

// RecordGeneration records one AI generation: latency, outcome, notes dropped
// by validation and whether the fallback melody was used.
func (m *Client) RecordGeneration(duration time.Duration, outcome string, dropped int, fallback bool) {
	dims := m.dimensions(dimension("Outcome", outcome))
	fallbackValue := 0.0
	if fallback {
		fallbackValue = 1
	}
	m.send(
		datum("GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims),
		datum("NotesDropped", float64(dropped), types.StandardUnitCount, dims),
		datum("FallbackMelody", fallbackValue, types.StandardUnitCount, dims),
	)
}

// RecordMidiEncoded records the size of an encoded file
func (m *Client) RecordMidiEncoded(bytes, notes int) {
	dims := m.dimensions()
	m.send(
		datum("MidiFileSize", float64(bytes), types.StandardUnitBytes, dims),
		datum("MidiNoteCount", float64(notes), types.StandardUnitCount, dims),
	)
}

// RecordBatch records the outcome split of a batch save or delete
func (m *Client) RecordBatch(operation string, succeeded, failed int) {
	dims := m.dimensions(dimension("Operation", operation))
	m.send(
		datum("BatchSucceeded", float64(succeeded), types.StandardUnitCount, dims),
		datum("BatchFailed", float64(failed), types.StandardUnitCount, dims),
	)
}

// Flush waits for in-flight metric calls
func (m *Client) Flush() {
	m.inflight.Wait()
}

func datum(name string, value float64, unit types.StandardUnit, dims []types.Dimension) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}
}

// send puts the data points in one call on a background goroutine
func (m *Client) send(data ...types.MetricDatum) {
	if !m.enabled || m.client == nil {
		return
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeout)
		defer cancel()

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(namespace),
			MetricData: data,
		})
		if err != nil {
			log.Printf("Failed to record %d CloudWatch metrics (first: %s): %v", len(data), aws.ToString(data[0].MetricName), err)
		}
	}()
}
