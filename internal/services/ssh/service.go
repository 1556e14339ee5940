// Package ssh powers off the database host over SSH after an export run.
package ssh

import (
	"context"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const connectTimeout = 30 * time.Second

// Service defines the interface for remote shutdown.
type Service interface {
	Shutdown(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error)
}

// Client is the part of *ssh.Client the service needs.
type Client interface {
	Run(cmd string) ([]byte, error)
	Close() error
}

// Dialer opens authenticated SSH connections. It allows mocking in tests.
type Dialer interface {
	Dial(ctx context.Context, addr string, config *ssh.ClientConfig) (Client, error)
}

// DefaultDialer connects with a context-aware TCP dial.
type DefaultDialer struct{}

// Dial connects to addr and performs the SSH handshake.
func (d *DefaultDialer) Dial(ctx context.Context, addr string, config *ssh.ClientConfig) (Client, error) {
	conn, err := (&net.Dialer{Timeout: config.Timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return &sessionClient{client: ssh.NewClient(c, chans, reqs)}, nil
}

type sessionClient struct {
	client *ssh.Client
}

func (c *sessionClient) Run(cmd string) ([]byte, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	return session.CombinedOutput(cmd)
}

func (c *sessionClient) Close() error {
	return c.client.Close()
}

// Impl implements the SSH Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new SSH service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &DefaultDialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new SSH service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// Shutdown schedules a power-off of cfg.Host after cfg.Delay.
func (s *Impl) Shutdown(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error) {
	result := &models.ShutdownResult{Command: Command(cfg.OS, cfg.Delay)}

	clientCfg, err := clientConfig(cfg)
	if err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s.logger.Info().
		Str("address", addr).
		Str("user", cfg.Username).
		Dur("delay", cfg.Delay).
		Msg("shutting down database host")

	client, err := s.dialer.Dial(ctx, addr, clientCfg)
	if err != nil {
		result.Error = fmt.Errorf("failed to connect to %s: %w", addr, err)
		return result, nil //nolint:nilerr // error is stored in result struct
	}
	defer func() { _ = client.Close() }()

	s.logger.Debug().Str("command", result.Command).Msg("executing shutdown command")

	output, err := client.Run(result.Command)
	result.Output = string(output)
	result.CommandRun = true

	// The host may drop the connection while shutting down, so a failed
	// command only counts when the context ended.
	if err != nil {
		if ctx.Err() != nil {
			result.Error = ctx.Err()
			return result, nil
		}
		s.logger.Warn().Err(err).Str("output", result.Output).Msg("shutdown command returned error (may be expected)")
	}

	return result, nil
}

// Command returns the shutdown command for the target OS.
func Command(targetOS string, delay time.Duration) string {
	if targetOS == "windows" {
		return fmt.Sprintf("shutdown /s /t %d", int(delay.Seconds()))
	}

	minutes := int(math.Ceil(delay.Minutes()))
	if minutes <= 0 {
		return "sudo shutdown -h now"
	}
	return fmt.Sprintf("sudo shutdown -h +%d", minutes)
}

func clientConfig(cfg models.ShutdownConfig) (*ssh.ClientConfig, error) {
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("no private key configured")
	}

	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in verification via known_hosts
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         connectTimeout,
	}, nil
}
