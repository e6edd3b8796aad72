package openrgb

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	sdk "github.com/realbucksavage/openrgb-go"

	"github.com/scheerer/keyboard-indicators/internal/lights"
)

// Controller describes one device known to the OpenRGB daemon.
type Controller struct {
	Name string
	LEDs int
}

// conn is the part of the SDK client the adapter uses.
type conn interface {
	ControllerCount() (int, error)
	Controller(index int) (Controller, error)
	UpdateLEDs(index int, colors []lights.Color) error
	Close() error
}

type sdkConn struct {
	count      func() (int, error)
	controller func(index int) (Controller, error)
	update     func(index int, colors []sdk.Color) error
	close      func() error
}

func (s *sdkConn) ControllerCount() (int, error) { return s.count() }

func (s *sdkConn) Controller(index int) (Controller, error) { return s.controller(index) }

func (s *sdkConn) Close() error { return s.close() }

func (s *sdkConn) UpdateLEDs(index int, colors []lights.Color) error {
	return s.update(index, toSDK(colors))
}

func toSDK(colors []lights.Color) []sdk.Color {
	out := make([]sdk.Color, len(colors))
	for i, c := range colors {
		out[i] = sdk.Color{Red: c.Red, Green: c.Green, Blue: c.Blue}
	}
	return out
}

// Client serializes calls to the daemon. The SDK does not take a context,
// ctx is checked before every call.
type Client struct {
	mu   sync.Mutex
	conn conn
}

func newClient(c conn) *Client {
	return &Client{conn: c}
}

// Dial connects to the SDK server. A cancelled ctx abandons the attempt and
// closes the connection if it still comes up.
func Dial(ctx context.Context, host string, port int) (*Client, error) {
	type result struct {
		conn conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := sdk.Connect(host, port)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{conn: &sdkConn{
			count: c.GetControllerCount,
			controller: func(index int) (Controller, error) {
				d, err := c.GetDeviceController(index)
				if err != nil {
					return Controller{}, err
				}
				return Controller{Name: d.Name, LEDs: len(d.Colors)}, nil
			},
			update: c.UpdateLEDs,
			close:  c.Close,
		}}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("connect to OpenRGB at %s: %w", net.JoinHostPort(host, strconv.Itoa(port)), r.err)
		}
		return newClient(r.conn), nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) ControllerCount(ctx context.Context) (int, error) {
	var n int
	err := c.do(ctx, func() (err error) {
		n, err = c.conn.ControllerCount()
		return err
	})
	return n, err
}

func (c *Client) Controller(ctx context.Context, index int) (Controller, error) {
	var ctrl Controller
	err := c.do(ctx, func() (err error) {
		ctrl, err = c.conn.Controller(index)
		return err
	})
	return ctrl, err
}

// UpdateLEDs sets every LED of controller index.
func (c *Client) UpdateLEDs(ctx context.Context, index int, colors []lights.Color) error {
	return c.do(ctx, func() error {
		return c.conn.UpdateLEDs(index, colors)
	})
}

func (c *Client) do(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
