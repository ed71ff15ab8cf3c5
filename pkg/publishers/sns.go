package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
)

// snsClient defines the minimal subset of the SNS client used by snsPublisher.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher delivers post events to an AWS SNS topic.
type snsPublisher struct {
	topicARN string
	client   snsClient
	log      logger.Logger
}

func newSNSPublisher(ctx context.Context, d Destination, opts Options) (Publisher, error) {
	if d.SNS == nil {
		return nil, fmt.Errorf("destination %q missing sns configuration", d.AccountID())
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(d.SNS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsPublisher{
		topicARN: d.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      logger.Ensure(opts.Log),
	}, nil
}

func (s *snsPublisher) Kind() Kind        { return KindSNS }
func (s *snsPublisher) AccountID() string { return s.topicARN }

// Publish sends the post event to the configured SNS topic.
func (s *snsPublisher) Publish(ctx context.Context, post domain.Post) error {
	payload, err := json.Marshal(NewEvent(post))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"link": {
				DataType:    aws.String("String"),
				StringValue: aws.String(post.Link),
			},
		},
	}

	if post.Title != "" {
		input.Subject = aws.String(clip(post.Title, 100))
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns publisher delivered post", "publisher_sns_delivery", map[string]any{
		"topic_arn":  s.topicARN,
		"message_id": aws.ToString(out.MessageId),
	})
	return nil
}
