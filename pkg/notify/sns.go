package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/levenlabs/go-lflag"
)

// snsAPI is the subset of the SNS client used here.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
}

// SNS publishes notifications to an AWS SNS topic the household subscribes
// to (SMS, e-mail or push).
type SNS struct {
	region   string
	topicARN string
	client   snsAPI

	mu         sync.Mutex
	permission Permission
}

var _ Notifier = (*SNS)(nil)

// configuredSNS registers the SNS flags.
func configuredSNS() *SNS {
	region := lflag.String("sns-region", "af-south-1", "AWS region of the SNS topic")
	topicARN := lflag.String("sns-topic-arn", "", "ARN of the SNS topic to publish alerts to")

	s := &SNS{permission: PermissionDefault}

	lflag.Do(func() {
		s.region = *region
		s.topicARN = *topicARN
	})

	return s
}

// NewSNS creates an SNS notifier from an existing client.
func NewSNS(client snsAPI, topicARN string) *SNS {
	return &SNS{
		client:     client,
		topicARN:   topicARN,
		permission: PermissionDefault,
	}
}

// Validate checks if the notifier is properly configured.
func (s *SNS) Validate() error {
	if s.topicARN == "" {
		return fmt.Errorf("sns-topic-arn is required")
	}
	return nil
}

// Init loads the default AWS configuration and creates the client.
func (s *SNS) Init(ctx context.Context) error {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s.region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}
	s.client = sns.NewFromConfig(cfg)
	return nil
}

// Permission implements Notifier.
func (s *SNS) Permission(ctx context.Context) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return PermissionUnsupported
	}
	return s.permission
}

// RequestPermission checks that the topic is reachable with the configured
// credentials. An authorization failure is a denial; any other failure leaves
// the decision open.
func (s *SNS) RequestPermission(ctx context.Context) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return PermissionUnsupported
	}
	if s.permission != PermissionDefault {
		return s.permission
	}

	_, err := s.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(s.topicARN),
	})
	if err != nil {
		var authErr *snstypes.AuthorizationErrorException
		var notFound *snstypes.NotFoundException
		if errors.As(err, &authErr) || errors.As(err, &notFound) {
			s.permission = PermissionDenied
		}
		log.Ctx(ctx).WarnContext(ctx, "sns topic check failed", slog.String("topic", s.topicARN), slog.Any("error", err))
		return s.permission
	}
	s.permission = PermissionGranted
	return s.permission
}

// Dispatch implements Notifier.
func (s *SNS) Dispatch(ctx context.Context, title, body string) error {
	if s.Permission(ctx) != PermissionGranted {
		return ErrNotGranted
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(title),
		Message:  aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "notification published", slog.String("messageID", aws.ToString(out.MessageId)))
	return nil
}

// Close implements Notifier.
func (s *SNS) Close() error {
	return nil
}
