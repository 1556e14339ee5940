package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for an export run notification.
type TelegramMessage struct {
	Success   bool
	RunID     string
	Backend   Backend
	Host      string
	StartTime time.Time
	Duration  time.Duration

	Selected  int
	Successes []DumpResult // ranked
	Failed    []string

	// Error info (if the run aborted).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
