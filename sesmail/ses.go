// Package sesmail delivers auth emails through AWS SES.
package sesmail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-accounts"
)

// Mailer implements auth.Mailer on top of an SES client.
type Mailer struct {
	client      *ses.Client
	fromAddress string
}

// Verify interface compliance
var _ auth.Mailer = (*Mailer)(nil)

// New creates a Mailer sending from the given verified address.
func New(client *ses.Client, fromAddress string) *Mailer {
	return &Mailer{
		client:      client,
		fromAddress: fromAddress,
	}
}

// Send delivers a single plain-text email via SES.
func (m *Mailer) Send(ctx context.Context, msg auth.Email) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "ses send failed").
			WithMetadata(map[string]any{
				"to":      msg.To,
				"subject": msg.Subject,
			})
	}

	return nil
}
