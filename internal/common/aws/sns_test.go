package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSClient_Publish(t *testing.T) {
	api := &fakeSNS{}
	client := NewSNSClientWithAPI(api, "arn:aws:sns:us-east-1:123:prospects")

	id, err := client.Publish(context.Background(), "prospect.finalized", "tenant-1", map[string]string{"prospectId": "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.NotNil(t, api.input)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:prospects", aws.ToString(api.input.TopicArn))
	assert.Equal(t, "prospect.finalized", aws.ToString(api.input.MessageAttributes["eventType"].StringValue))
	assert.Equal(t, "tenant-1", aws.ToString(api.input.MessageAttributes["tenantId"].StringValue))

	var evt Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.input.Message)), &evt))
	assert.Equal(t, "prospect.finalized", evt.Type)
	assert.NotEmpty(t, evt.ID)
}

func TestSNSClient_PublishError(t *testing.T) {
	client := NewSNSClientWithAPI(&fakeSNS{err: errors.New("throttled")}, "arn")
	_, err := client.Publish(context.Background(), "prospect.finalized", "tenant-1", nil)
	assert.ErrorContains(t, err, "throttled")
}
