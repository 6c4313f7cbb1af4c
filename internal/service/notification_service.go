package service

import (
	"cashflow_stp/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrServiceClosed = errors.New("notification service is shut down")

type NotificationType string

const (
	NotificationEmail NotificationType = "email"
	NotificationSlack NotificationType = "slack"
)

// Recipients says where review requests go. An empty address disables
// that channel.
type Recipients struct {
	ReviewEmail  string
	SlackChannel string
}

type NotificationService struct {
	emailService EmailService
	slackService SlackService
	recipients   Recipients
	messageQueue chan NotificationMessage
	workers      int
	closed       atomic.Bool
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

type NotificationMessage struct {
	Type      NotificationType
	Recipient string
	Subject   string
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}

type EmailService interface {
	SendEmail(to, subject, body string) error
}

type SlackService interface {
	SendMessage(channel, message string) error
}

func NewNotificationService(
	emailService EmailService,
	slackService SlackService,
	recipients Recipients,
	workers int,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	service := &NotificationService{
		emailService: emailService,
		slackService: slackService,
		recipients:   recipients,
		messageQueue: make(chan NotificationMessage, 1000),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	service.startWorkers()

	return service
}

// NotifyNonSTP queues a manual review request for a cashflow that a check
// marked NON-STP.
func (s *NotificationService) NotifyNonSTP(ctx context.Context, cf *domain.Cashflow, check string) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}

	subject := fmt.Sprintf("Manual review required: %s", cf.ID)
	message := fmt.Sprintf(
		"Cashflow %s was marked NON-STP by %q.\nCounterparty: %s\nAmount: %.2f %s\nSettlement: %s\nNote: %s",
		cf.ID, check, cf.CounterParty, cf.Amount, cf.Currency, cf.SettlementDay(), cf.Note,
	)
	metadata := map[string]string{
		"cashflow_id": cf.ID,
		"check":       check,
	}

	var notifications []NotificationMessage
	if s.recipients.SlackChannel != "" && s.slackService != nil {
		notifications = append(notifications, NotificationMessage{
			Type:      NotificationSlack,
			Recipient: s.recipients.SlackChannel,
			Subject:   subject,
			Message:   message,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		})
	}
	if s.recipients.ReviewEmail != "" && s.emailService != nil {
		notifications = append(notifications, NotificationMessage{
			Type:      NotificationEmail,
			Recipient: s.recipients.ReviewEmail,
			Subject:   subject,
			Message:   message,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		})
	}

	for _, notification := range notifications {
		select {
		case s.messageQueue <- notification:
			s.logger.InfoContext(ctx, "Review notification queued",
				slog.String("type", string(notification.Type)),
				slog.String("recipient", notification.Recipient),
				slog.String("cashflow_id", cf.ID))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *NotificationService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, id)
		case <-s.shutdownChan:
			s.drain(id)
			s.logger.Debug("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

// drain sends whatever is still queued once shutdown starts.
func (s *NotificationService) drain(workerID int) {
	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, workerID)
		default:
			return
		}
	}
}

func (s *NotificationService) processNotification(msg NotificationMessage, workerID int) {
	startTime := time.Now()
	var err error

	switch msg.Type {
	case NotificationEmail:
		err = s.emailService.SendEmail(msg.Recipient, msg.Subject, msg.Message)
	case NotificationSlack:
		err = s.slackService.SendMessage(msg.Recipient, msg.Message)
	default:
		err = fmt.Errorf("unknown notification type: %s", msg.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Failed to send notification",
			slog.String("type", string(msg.Type)),
			slog.String("recipient", msg.Recipient),
			slog.String("cashflow_id", msg.Metadata["cashflow_id"]),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	} else {
		s.logger.Info("Notification sent successfully",
			slog.String("type", string(msg.Type)),
			slog.String("recipient", msg.Recipient),
			slog.String("cashflow_id", msg.Metadata["cashflow_id"]),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	}
}

func (s *NotificationService) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.shutdownChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
