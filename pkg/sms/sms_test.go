package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	fail   map[string]bool
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.fail[aws.ToString(in.PhoneNumber)] {
		return nil, errors.New("throttled")
	}
	return &sns.PublishOutput{MessageId: aws.String("m-" + aws.ToString(in.PhoneNumber))}, nil
}

func TestAWSSNSProvider_SendSMS(t *testing.T) {
	fake := &fakeSNS{}
	p := &AWSSNSProvider{client: fake, region: "us-east-1"}

	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550001111", Message: "SOS"})
	require.NoError(t, err)
	assert.Equal(t, "sent", resp.Status)
	assert.Equal(t, "m-+15550001111", resp.MessageID)

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "SOS", aws.ToString(fake.inputs[0].Message))
	assert.Equal(t, "Transactional", aws.ToString(fake.inputs[0].MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestAWSSNSProvider_BulkContinuesPastFailures(t *testing.T) {
	fake := &fakeSNS{fail: map[string]bool{"+1": true}}
	p := &AWSSNSProvider{client: fake}

	out, err := p.SendBulkSMS(context.Background(), []*SMSRequest{
		{To: "+1", Message: "a"},
		{To: "+2", Message: "b"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "failed", out[0].Status)
	assert.Equal(t, "sent", out[1].Status)
}

func TestTwilioProvider_FromNumberDefault(t *testing.T) {
	p := NewTwilioProvider("AC123", "token", "+15550000000")

	assert.Equal(t, "+15550000000", p.getFromNumber(""))
	assert.Equal(t, "+15559999999", p.getFromNumber("+15559999999"))
}
