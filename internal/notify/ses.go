// Package notify sends the approval link of a delayed transfer to the
// editor responsible for the form.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/pkg/tmpl"
)

// sesAPI is the part of the SES v2 client the notifier needs.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES notifier.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	FromEmail string
	FromName  string
}

// SESNotifier mails pending-transfer notices through AWS SES.
type SESNotifier struct {
	client sesAPI
	from   string
}

// NewSESNotifier builds the SES client. Static credentials are used when
// given, otherwise the default AWS credential chain.
func NewSESNotifier(ctx context.Context, cfg SESConfig) (*SESNotifier, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(awsCfg), cfg), nil
}

// NewSESNotifierWithClient wires an existing client (useful for testing).
func NewSESNotifierWithClient(client sesAPI, cfg SESConfig) *SESNotifier {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &SESNotifier{client: client, from: from}
}

// NotifyPending implements dispatch.Notifier.
func (n *SESNotifier) NotifyPending(ctx context.Context, notice domain.PendingNotice) error {
	vars := noticeVars(notice)
	subject, err := templates.Render("subject", vars)
	if err != nil {
		return err
	}
	html, err := templates.Render("html", vars)
	if err != nil {
		return err
	}
	text, err := templates.Render("text", vars)
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{notice.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("form_id"), Value: aws.String(strconv.FormatInt(notice.FormID, 10))},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	logger.Info("notify: pending transfer notice sent",
		"recipient", notice.To, "form_id", notice.FormID, "message_id", messageID)
	return nil
}

type fieldRow struct {
	Label string
	Value string
}

func noticeVars(n domain.PendingNotice) map[string]interface{} {
	c := n.Contact
	rows := []fieldRow{{"Email", n.Email}}
	for _, r := range []fieldRow{{"First name", c.FirstName}, {"Last name", c.LastName}, {"Phone", c.Phone}} {
		if r.Value != "" {
			rows = append(rows, r)
		}
	}
	custom := append([]domain.FieldValue(nil), c.FieldValues...)
	sort.Slice(custom, func(i, j int) bool { return custom[i].Field < custom[j].Field })
	for _, fv := range custom {
		rows = append(rows, fieldRow{Label: "Custom field " + strconv.Itoa(fv.Field), Value: fv.Value})
	}

	fields := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		fields = append(fields, map[string]interface{}{"label": r.Label, "value": r.Value})
	}
	return map[string]interface{}{
		"form_id":      n.FormID,
		"email":        n.Email,
		"fields":       fields,
		"transfer_url": n.TransferURL,
		"expires":      n.AutoDeleteAt.Format("02.01.2006"),
		"spam":         n.SpamSuspected,
	}
}

var templates = tmpl.MustParse(map[string]string{
	"subject": `{% if spam %}[Spam?] {% endif %}New submission awaiting approval (form {{ form_id }})`,
	"text": `A new submission from {{ email }} is waiting for your approval.
{% if spam %}
The spam check flagged this submission. Please review it carefully.
{% endif %}
{% for f in fields %}{{ f.label }}: {{ f.value }}
{% endfor %}
Transfer to ActiveCampaign:
{{ transfer_url }}

The link can be used once and expires on {{ expires }}.
`,
	"html": `<p>A new submission from <strong>{{ email | escape }}</strong> is waiting for your approval.</p>
{% if spam %}<p style="color:#b00020">The spam check flagged this submission. Please review it carefully.</p>
{% endif %}<table>
{% for f in fields %}<tr><th align="left">{{ f.label | escape }}</th><td>{{ f.value | escape }}</td></tr>
{% endfor %}</table>
<p><a href="{{ transfer_url | escape }}">Transfer to ActiveCampaign</a></p>
<p>The link can be used once and expires on {{ expires }}.</p>
`,
})
