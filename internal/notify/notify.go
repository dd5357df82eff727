// Package notify mails import events to the configured recipients.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/events"
)

// Notifier sends one mail per import event.
type Notifier struct {
	cfg  config.NotifyConfig
	name string
	send func(*email.Email) error
}

// New returns a Notifier for cfg, or nil when SMTP is not configured.
func New(cfg config.NotifyConfig, name string) *Notifier {
	if !cfg.Enabled() {
		return nil
	}
	n := &Notifier{cfg: cfg, name: name}
	n.send = n.sendSMTP
	return n
}

// Message builds the mail for ev. It returns nil for events that are not
// worth a mail.
func (n *Notifier) Message(ev events.Event) *email.Email {
	if ev.Topic != events.TopicImported {
		return nil
	}
	count, ok := ev.Data[events.DataTransactionsImported].(int)
	if !ok || count <= 0 {
		return nil
	}

	noun := "transactions"
	if count == 1 {
		noun = "transaction"
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To
	e.Subject = fmt.Sprintf("[%s] %d new %s imported", n.name, count, noun)
	e.Text = fmt.Appendf(nil,
		"Imported %d %s into %s at %s.\n\nEvent %s (seq %d).\n",
		count, noun, n.name, ev.Timestamp.Format("2006-01-02 15:04:05 MST"), ev.ID, ev.Seq)
	return e
}

// Run mails import events from bus until ctx is done.
func (n *Notifier) Run(ctx context.Context, bus *events.Bus) {
	id, ch := bus.Subscribe(16)
	defer bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			msg := n.Message(ev)
			if msg == nil {
				continue
			}
			if err := n.send(msg); err != nil {
				log.Error().Err(err).Str("topic", ev.Topic).Msg("sending notification")
				continue
			}
			log.Info().Strs("to", msg.To).Msg("notification sent")
		}
	}
}

func (n *Notifier) sendSMTP(e *email.Email) error {
	addr := net.JoinHostPort(n.cfg.SMTPHost, strconv.Itoa(n.cfg.SMTPPort))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}
