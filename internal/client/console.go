package client

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

const (
	cmdQuit  = "/quit"
	cmdUsers = "/users"
)

// Console drives a Client from line-oriented input. Until a join succeeds
// every line is taken as a name to join with; afterwards lines are chat
// messages, except for the /users and /quit commands.
type Console struct {
	client   *Client
	renderer *Renderer
	joined   atomic.Bool
}

// NewConsole returns a Console sending through client and printing with
// renderer.
func NewConsole(client *Client, renderer *Renderer) *Console {
	return &Console{client: client, renderer: renderer}
}

// Joined reports whether the relay accepted a join from this console.
func (c *Console) Joined() bool {
	return c.joined.Load()
}

// Observe renders an inbound envelope and tracks the join outcome.
func (c *Console) Observe(env chat.Envelope) {
	if resp, ok := env.(chat.JoinResponse); ok && resp.Success {
		c.joined.Store(true)
	}
	c.renderer.Render(env)
}

// HandleLine acts on one input line and reports whether the user asked to
// quit.
func (c *Console) HandleLine(line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == cmdQuit:
		return true, nil
	case line == cmdUsers:
		c.renderer.RenderUsers()
		return false, nil
	case !c.Joined():
		return false, c.client.Join(line)
	default:
		return false, c.client.Say(line)
	}
}

// Run listens for envelopes while reading lines from in, until /quit, end of
// input, ctx cancellation or the server closing the connection.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.client.Listen(ctx, c.Observe, c.renderer.RenderText)
		cancel()
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.client.Close()
			return <-listenErr
		case line, ok := <-lines:
			if !ok {
				_ = c.client.Close()
				return <-listenErr
			}
			quit, err := c.HandleLine(line)
			if err != nil {
				_ = c.client.Close()
				<-listenErr
				return err
			}
			if quit {
				_ = c.client.Close()
				return <-listenErr
			}
		}
	}
}
