package notify

import (
	"context"
	"errors"
	"fmt"

	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

// FCMSender delivers messages through Firebase Cloud Messaging HTTP v1.
type FCMSender struct {
	service *fcm.Service
	parent  string
}

// NewFCMSender creates a sender for projectID using a service account key file.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	if projectID == "" {
		return nil, errors.New("fcm: project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fcm: create service: %w", err)
	}

	return &FCMSender{
		service: svc,
		parent:  "projects/" + projectID,
	}, nil
}

// Send implements Sender.
func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: map[string]string{"kind": string(msg.Kind)},
		},
	}

	if _, err := s.service.Projects.Messages.Send(s.parent, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
