package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/services"
)

const (
	slackTimeout   = 10 * time.Second
	slackQueueSize = 64
)

// slackAPI is the subset of *slack.Client the notifier uses
type slackAPI interface {
	conversationLister
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts newly created urgent and critical alerts to a channel.
// Posts run on a background worker so analysis never waits on Slack.
type SlackNotifier struct {
	client   slackAPI
	channel  string
	resolver *ChannelResolver

	queue  chan services.AlertEvent
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewSlackNotifier creates a notifier posting with the given bot token
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return newSlackNotifier(slack.New(token), channel)
}

func newSlackNotifier(client slackAPI, channel string) *SlackNotifier {
	n := &SlackNotifier{
		client:   client,
		channel:  channel,
		resolver: NewChannelResolver(client),
		queue:    make(chan services.AlertEvent, slackQueueSize),
		done:     make(chan struct{}),
	}
	go n.run()
	return n
}

// NotifyAlert queues the alert when it was just created at urgent or critical level.
// Updates and status changes stay on the live feed only. It never blocks the
// caller: when the queue is full the post is dropped.
func (n *SlackNotifier) NotifyAlert(_ context.Context, event services.AlertEvent) {
	if !shouldPost(event) {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		log.Printf("Slack notifier closed, dropping alert %s", event.Alert.UUID)
		return
	}
	select {
	case n.queue <- event:
	default:
		log.Printf("Slack queue full, dropping alert %s", event.Alert.UUID)
	}
}

// Close stops accepting alerts and waits for queued posts to finish
func (n *SlackNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *SlackNotifier) run() {
	defer close(n.done)
	for event := range n.queue {
		n.post(event)
	}
}

func (n *SlackNotifier) post(event services.AlertEvent) {
	channelID, err := n.resolver.ResolveChannel(n.channel)
	if err != nil {
		log.Printf("Failed to resolve Slack channel %q: %v", n.channel, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), slackTimeout)
	defer cancel()
	if _, _, err := n.client.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(FormatSlackMessage(event), false),
	); err != nil {
		log.Printf("Failed to post alert %s to Slack: %v", event.Alert.UUID, err)
	}
}

func shouldPost(event services.AlertEvent) bool {
	if event.Kind != services.AlertCreated {
		return false
	}
	switch event.Alert.Level {
	case database.AlertLevelCritical, database.AlertLevelUrgent:
		return true
	}
	return false
}

// FormatSlackMessage renders an alert as Slack mrkdwn
func FormatSlackMessage(event services.AlertEvent) string {
	a := event.Alert
	return fmt.Sprintf(`%s *%s*

:gear: *Machine:* %s
:warning: *Level:* %s
:chart_with_upwards_trend: *Failure probability:* %.1f%% within %d days
:memo: %s
:wrench: *Recommended action:* %s`,
		levelEmoji(a.Level),
		a.Title,
		event.MachineNumber,
		a.Level,
		a.FailureProbability,
		a.HorizonDays,
		a.Message,
		a.RecommendedAction,
	)
}

func levelEmoji(level database.AlertLevel) string {
	switch level {
	case database.AlertLevelCritical:
		return ":rotating_light:"
	case database.AlertLevelUrgent:
		return ":warning:"
	case database.AlertLevelAttention:
		return ":large_yellow_circle:"
	default:
		return ":information_source:"
	}
}
