package notifysvc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/aminofabian/squlll/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

var sendFunc = sendgrid.API // mockable

// SendgridNotifier emails warning and error notifications to the configured recipients
// and to the email of the tenant that triggered them.
type SendgridNotifier struct {
	key        string
	from       *sgmail.Email
	to         []string
	subjPrefix string
	logger     core.Logger
}

var _ core.Notifier = (*SendgridNotifier)(nil)

func NewSendgridNotifier(conf *core.Config, logger core.Logger) *SendgridNotifier {
	return &SendgridNotifier{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.AppName, conf.DefaultFromEmail),
		to:         conf.NotifyEmails,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *SendgridNotifier) Notify(_ context.Context, notif core.Notification) {
	if notif.Level == core.LevelSuccess {
		return
	}
	m := svc.prepare(notif)
	if m == nil {
		return
	}
	go svc.send(m)
}

func (svc *SendgridNotifier) recipients(notif core.Notification) []string {
	seen := make(map[string]bool)
	addrs := make([]string, 0, len(svc.to)+1)
	for _, addr := range append(append([]string{}, svc.to...), notif.Tenant.Email) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs
}

// prepare returns nil when nobody is to be notified.
func (svc *SendgridNotifier) prepare(notif core.Notification) *sgmail.SGMailV3 {
	recipients := svc.recipients(notif)
	if len(recipients) == 0 {
		return nil
	}

	p := sgmail.NewPersonalization()
	p.Subject = fmt.Sprintf("%s%s (%s)", svc.subjPrefix, notif.Title, notif.Level)
	for _, addr := range recipients {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	text := notif.Message
	if notif.Tenant.SchoolID != "" {
		text = fmt.Sprintf("School: %s\r\n\r\n%s", notif.Tenant.SchoolID, notif.Message)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", text))
	return m
}

func (svc *SendgridNotifier) send(m *sgmail.SGMailV3) {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendFunc(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending notification email: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending notification email - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}
