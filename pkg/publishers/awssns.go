package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient defines the minimal subset of the SNS client used by the AWS sender.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// awsSNSSender implements queueSender for AWS SNS.
type awsSNSSender struct {
	topicARN string
	client   snsClient
}

func newAWSSNSSender(ctx context.Context, cfg *AWSSNSPublisherConfig) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws sns configuration is missing")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}

	return &awsSNSSender{
		topicARN: cfg.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
	}, nil
}

// Send publishes the JSON event to the topic. The episode title doubles as the
// subject so email subscriptions stay readable.
func (s *awsSNSSender) Send(ctx context.Context, evt Event) (string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range evt.Attributes() {
		if v == "" {
			continue
		}
		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attrs,
	}
	if subject := snsSubject(evt.Title); subject != "" {
		input.Subject = aws.String(subject)
	}

	resp, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send message to sns: %w", err)
	}
	return aws.ToString(resp.MessageId), nil
}

func (s *awsSNSSender) Close() error { return nil }

// snsSubject trims a title to the 100 printable ASCII characters SNS accepts.
func snsSubject(title string) string {
	const maxLen = 100
	out := make([]byte, 0, maxLen)
	for _, r := range title {
		if len(out) == maxLen {
			break
		}
		if r < 0x20 || r > 0x7e {
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
