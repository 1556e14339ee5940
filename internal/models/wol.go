package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the database host.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string        `default:"255.255.255.255"`
	PollAddress   string        // host:port to dial until it answers; defaults to the database address
	Timeout       time.Duration `default:"5m"`  // max time to wait for the host
	PollInterval  time.Duration `default:"10s"` // how often to dial
	StabilizeWait time.Duration `default:"10s"` // wait after the port answers
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
