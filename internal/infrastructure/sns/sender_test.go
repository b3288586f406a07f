package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublishAPI struct {
	got *sns.PublishInput
	err error
}

func (f *fakePublishAPI) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.got = in
	return &sns.PublishOutput{}, f.err
}

func TestPublish_SetsTopicAndAttributes(t *testing.T) {
	api := &fakePublishAPI{}
	p := newTopicPublisher(api, "arn:aws:sns:us-east-1:000000000000:alerts")

	err := p.Publish(context.Background(), "Device offline", "RADAR-002 is not responding", map[string]string{"severity": "high"})
	require.NoError(t, err)
	require.NotNil(t, api.got)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:alerts", *api.got.TopicArn)
	assert.Equal(t, "Device offline", *api.got.Subject)
	assert.Equal(t, "high", *api.got.MessageAttributes["severity"].StringValue)
	assert.Equal(t, "String", *api.got.MessageAttributes["severity"].DataType)
}

func TestPublish_Error(t *testing.T) {
	p := newTopicPublisher(&fakePublishAPI{err: errors.New("throttled")}, "arn")
	err := p.Publish(context.Background(), "s", "m", nil)
	assert.ErrorContains(t, err, "throttled")
}
