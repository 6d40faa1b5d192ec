package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func (f *fakeCloudWatch) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, in := range f.inputs {
		for _, d := range in.MetricData {
			names = append(names, aws.ToString(d.MetricName))
		}
	}
	return names
}

func newFakeClient() (*Client, *fakeCloudWatch) {
	fake := &fakeCloudWatch{}
	return &Client{client: fake, enabled: true, environment: "test"}, fake
}

func TestClient_RecordGeneration(t *testing.T) {
	c, fake := newFakeClient()

	c.RecordGeneration(1500*time.Millisecond, OutcomeSuccess, 2, true)
	c.Flush()

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, namespace, aws.ToString(in.Namespace))
	assert.Equal(t, []string{"GenerationDuration", "NotesDropped", "FallbackMelody"}, fake.names())
	assert.Equal(t, 1500.0, aws.ToFloat64(in.MetricData[0].Value))
	assert.Equal(t, 1.0, aws.ToFloat64(in.MetricData[2].Value))

	dims := in.MetricData[0].Dimensions
	require.Len(t, dims, 2)
	assert.Equal(t, "Outcome", aws.ToString(dims[0].Name))
	assert.Equal(t, "Environment", aws.ToString(dims[1].Name))
	assert.Equal(t, "test", aws.ToString(dims[1].Value))
}

func TestClient_RecordAPIRequestErrorMetric(t *testing.T) {
	c, fake := newFakeClient()

	c.RecordAPIRequest("/generate/save", 502, time.Second)
	c.RecordAPIRequest("/health", 200, time.Millisecond)
	c.Flush()

	assert.ElementsMatch(t, []string{"APIErrors", "APILatency", "APIRequests", "APILatency"}, fake.names())
}

func TestClient_FailuresAreSwallowed(t *testing.T) {
	c, fake := newFakeClient()
	fake.err = errors.New("throttled")

	assert.NotPanics(t, func() {
		c.RecordBatch("save", 2, 1)
		c.RecordMidiEncoded(120, 5)
		c.RecordTokenUsage("gpt-4o-mini", 30, 10, 20)
		c.Flush()
	})
	assert.Len(t, fake.names(), 7)
}

func TestClient_DisabledIsNoop(t *testing.T) {
	c, err := NewClient(context.Background(), "development", false)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		c.RecordGeneration(time.Second, OutcomeFailure, 0, false)
		c.Flush()
	})
}

func TestMetrics_FanOut(t *testing.T) {
	c, fake := newFakeClient()
	m := New(NewSentryMetrics(), c)

	m.RecordGeneration(context.Background(), time.Second, OutcomeSuccess, 0, false)
	m.RecordBatch(context.Background(), "delete", 3, 0)
	m.Flush()

	assert.Len(t, fake.names(), 5)

	var _ Recorder = m
	var _ Recorder = Noop{}
}
