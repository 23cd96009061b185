package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/alert"
)

// SNSPublisher is the part of *sns.Client used here.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient wraps AWS SNS client for notification operations
type SNSClient struct {
	svc      SNSPublisher
	topicArn string
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewSNSClientWith(sns.NewFromConfig(cfg), topicArn), nil
}

func NewSNSClientWith(svc SNSPublisher, topicArn string) *SNSClient {
	return &SNSClient{svc: svc, topicArn: topicArn}
}

// SendAlert sends an alert notification via SNS
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	}

	result, err := c.svc.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Msg("sns alert sent")
	return nil
}

// Notify sends a device anomaly alert. It satisfies alert.Notifier.
func (c *SNSClient) Notify(ctx context.Context, a alert.Alert) error {
	subject := fmt.Sprintf("Home Energy Alert: %s above threshold", a.Name)
	message := fmt.Sprintf(
		"Anomaly Detection Alert\n\n"+
			"Device: %s\n"+
			"Power: %.1f W\n"+
			"Threshold: %.1f W\n"+
			"Time: %s\n\n"+
			"Check the appliance or adjust its threshold.",
		a.Name,
		a.Power,
		a.Threshold,
		a.At.Format(time.RFC3339),
	)

	return c.SendAlert(ctx, subject, message)
}
