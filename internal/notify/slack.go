package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/sessiond/termsess/internal/session"
)

// SlackSink posts a message to a single Slack channel whenever a
// previously-blocked session completes.
type SlackSink struct {
	client  *slack.Client
	channel string
}

func NewSlackSink(token, channel string) *SlackSink {
	return &SlackSink{client: slack.New(token), channel: channel}
}

func (s *SlackSink) Notify(cs *session.CompletedSession) error {
	text := fmt.Sprintf("session %d (`%s`) completed after %.1fs", cs.Pid, cs.Command, cs.Runtime().Seconds())
	if cs.ExitCode != nil {
		text += fmt.Sprintf(" — exit code %d", *cs.ExitCode)
	}
	_, _, err := s.client.PostMessage(s.channel, slack.MsgOptionText(text, false))
	return err
}
