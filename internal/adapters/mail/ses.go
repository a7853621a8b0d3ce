package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of the SES client the channel needs
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESChannel delivers through the AWS SES API
type SESChannel struct {
	client SESAPI
	from   string
}

// NewSESChannel wraps an SES client
func NewSESChannel(client SESAPI, from string) *SESChannel {
	return &SESChannel{client: client, from: from}
}

// NewSESChannelFromRegion builds the SES client from the default AWS
// credential chain. Without a region or sender the channel stays unconfigured.
func NewSESChannelFromRegion(ctx context.Context, region, from string) (*SESChannel, error) {
	if region == "" || from == "" {
		return &SESChannel{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESChannel(ses.NewFromConfig(cfg), from), nil
}

func (c *SESChannel) Name() string {
	return "ses"
}

func (c *SESChannel) Configured() bool {
	return c.client != nil && c.from != ""
}

func (c *SESChannel) AttemptDeliver(ctx context.Context, to, subject, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	input := &ses.SendEmailInput{
		Source: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(text),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := c.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	return nil
}
