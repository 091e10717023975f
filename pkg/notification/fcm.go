package notification

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// TopicPusher pushes messages to an FCM topic that operator devices subscribe to
type TopicPusher struct {
	client *messaging.Client
	topic  string
}

// NewTopicPusher creates an FCM topic pusher from an initialized Firebase app
func NewTopicPusher(ctx context.Context, app *firebase.App, topic string) (*TopicPusher, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &TopicPusher{client: client, topic: topic}, nil
}

func (p *TopicPusher) Send(ctx context.Context, msg Message) error {
	message := &messaging.Message{
		Topic: p.topic,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Description,
		},
		Data: map[string]string{
			"type":  "health_alert",
			"color": strconv.Itoa(msg.Color),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := p.client.Send(ctx, message); err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}
	return nil
}
