package service

import (
	"log/slog"
	"sync"
)

// LogSink delivers notifications to the structured log. It stands in for
// real email and Slack gateways when none is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) SendEmail(to, subject, body string) error {
	s.logger.Info("Email",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

func (s *LogSink) SendMessage(channel, message string) error {
	s.logger.Info("Slack message",
		slog.String("channel", channel),
		slog.String("message", message))
	return nil
}

type SentEmail struct {
	To      string
	Subject string
	Body    string
}

type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
	Err        error
}

func (m *MockEmailService) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentEmails = append(m.SentEmails, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

type SentMessage struct {
	Channel string
	Message string
}

type MockSlackService struct {
	mu           sync.Mutex
	SentMessages []SentMessage
}

func (m *MockSlackService) SendMessage(channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, SentMessage{Channel: channel, Message: message})
	return nil
}

func (m *MockSlackService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.SentMessages...)
}
