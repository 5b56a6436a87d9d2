package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetrics_RecordCommandExecution(t *testing.T) {
	client := &fakeCloudWatch{}
	m := NewMetrics("Piiquante/test", client, zap.NewNop())

	m.RecordCommandExecution(context.Background(), "VoteSauceCommand", 12*time.Millisecond, errors.New("rejected"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "Piiquante/test", aws.ToString(in.Namespace))
	require.Len(t, in.MetricData, 2)
	assert.Equal(t, "CommandExecution", aws.ToString(in.MetricData[0].MetricName))
	assert.Equal(t, 12.0, aws.ToFloat64(in.MetricData[0].Value))
	assert.Equal(t, "failure", aws.ToString(in.MetricData[0].Dimensions[1].Value))
}

func TestMetrics_PublishFailureIsSwallowed(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("throttled")}
	m := NewMetrics("Piiquante/test", client, zap.NewNop())

	m.RecordBlobLeak(context.Background(), "replaced")

	require.Len(t, client.inputs, 1)
	assert.Equal(t, "replaced", aws.ToString(client.inputs[0].MetricData[0].Dimensions[0].Value))
}

func TestMetrics_NilClientIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordCommandExecution(context.Background(), "x", time.Second, nil)

	NewMetrics("ns", nil, zap.NewNop()).RecordBlobLeak(context.Background(), "deleted")
}

func TestCollector_CountsAndServes(t *testing.T) {
	c := NewCollector("piiquante")

	c.SauceCreated()
	c.VoteApplied("like", "applied")
	c.VoteApplied("like", "DUPLICATE_VOTE")
	c.VoteRetried()
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveHTTP(http.MethodGet, "/api/sauces", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SaucesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Votes.WithLabelValues("like", "DUPLICATE_VOTE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.VoteRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "piiquante_sauces_created_total 1")
}

func TestTracer_DisabledRunsFunctionDirectly(t *testing.T) {
	tracer := NewTracer("piiquante-api", false)
	ran := false

	err := tracer.TraceFunction(context.Background(), "command.CreateSauceCommand", func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, tracer.Middleware(next))

	// Without a segment in the context decorations are dropped
	ctx := context.Background()
	tracer.AddAnnotation(ctx, "sauceID", "s1")
	tracer.AddMetadata(ctx, "error", "boom")
	tracer.RecordError(ctx, errors.New("boom"))
}
