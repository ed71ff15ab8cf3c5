package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
)

// sqsClient defines the minimal subset of the SQS client used by sqsPublisher.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher delivers post events to an AWS SQS queue.
type sqsPublisher struct {
	queueURL string
	client   sqsClient
	log      logger.Logger
}

// newSQSPublisher creates a new SQS publisher with the given configuration.
func newSQSPublisher(ctx context.Context, d Destination, opts Options) (Publisher, error) {
	if d.SQS == nil {
		return nil, fmt.Errorf("destination %q missing sqs configuration", d.AccountID())
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(d.SQS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &sqsPublisher{
		queueURL: d.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      logger.Ensure(opts.Log),
	}, nil
}

func (s *sqsPublisher) Kind() Kind        { return KindSQS }
func (s *sqsPublisher) AccountID() string { return s.queueURL }

// Publish sends the post event to the configured SQS queue.
func (s *sqsPublisher) Publish(ctx context.Context, post domain.Post) error {
	payload, err := json.Marshal(NewEvent(post))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"link": {
				DataType:    aws.String("String"),
				StringValue: aws.String(post.Link),
			},
		},
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs publisher delivered post", "publisher_sqs_delivery", map[string]any{
		"queue_url":  s.queueURL,
		"message_id": aws.ToString(out.MessageId),
	})
	return nil
}
