// Package notify posts report summaries to Slack. Delivery is optional: a
// nil notifier is a no-op, so the pipeline runs unchanged without a token.
package notify

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier returns nil when token or channel is missing.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{api: slack.New(token), channel: channel}
}

// PostReportSummary announces a generated report: headline insights plus
// where the full report was written.
func (n *SlackNotifier) PostReportSummary(insights []string, reportPath string, totalComplaints int) error {
	if n == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":bar_chart: *CRM complaint report generated* (%d complaints analyzed)\n", totalComplaints)
	for _, insight := range insights {
		b.WriteString("• " + insight + "\n")
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "Full report: `%s`", reportPath)
	}

	_, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(b.String(), false))
	if err != nil {
		return fmt.Errorf("posting report summary to Slack: %w", err)
	}
	logrus.WithField("channel", n.channel).Info("report summary posted to Slack")
	return nil
}
