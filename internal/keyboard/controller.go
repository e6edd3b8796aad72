package keyboard

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("keyboard")

const (
	shutdownWriteTimeout = 2 * time.Second
	warningInterval      = 10 * time.Second
)

type Options struct {
	// Tick is how long a batch stays open after its first message.
	Tick time.Duration
	// UrgentWindow bounds how long an urgent message waits before a flush.
	UrgentWindow time.Duration
	// BatchLimit caps the number of messages applied per flush.
	BatchLimit int
	QueueSize  int
	// LightCurveK is the calibrated light curve parameter, 0 when the
	// keyboard has not been calibrated.
	LightCurveK   float64
	TurnOffOnExit bool
	Clock         clock.Clock
}

func DefaultOptions() Options {
	return Options{
		Tick:          10 * time.Millisecond,
		UrgentWindow:  time.Millisecond,
		BatchLimit:    200,
		QueueSize:     200,
		TurnOffOnExit: true,
	}
}

// Controller owns the device and the color buffer. Producers talk to it
// through a Sender; Run batches their messages into device writes.
type Controller struct {
	device   lights.Device
	opts     Options
	clock    clock.Clock
	messages chan Message

	colors  []lights.Color
	scratch []lights.Color
	batch   []Message

	lastWarning time.Time
}

func New(device lights.Device, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}
	if opts.UrgentWindow <= 0 {
		opts.UrgentWindow = defaults.UrgentWindow
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = defaults.BatchLimit
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	n := device.LEDCount()
	return &Controller{
		device:   device,
		opts:     opts,
		clock:    opts.Clock,
		messages: make(chan Message, opts.QueueSize),
		colors:   make([]lights.Color, n),
		scratch:  make([]lights.Color, n),
		batch:    make([]Message, 0, opts.BatchLimit),
	}
}

func (c *Controller) Sender() Sender {
	return Sender{ch: c.messages}
}

func (c *Controller) LEDCount() int {
	return len(c.colors)
}

// Run writes the all-off state and then flushes batches until ctx is
// cancelled. A batch collected when ctx is cancelled is still written.
func (c *Controller) Run(ctx context.Context) error {
	logger.With(zap.Int("leds", len(c.colors)),
		zap.Duration("tick", c.opts.Tick),
		zap.Duration("urgentWindow", c.opts.UrgentWindow)).
		Info("LED controller starting")

	c.flush(ctx)

	for {
		batch, err := c.collect(ctx)
		if len(batch) > 0 {
			c.apply(batch)
			if err != nil {
				c.flushDetached(ctx)
			} else {
				c.flush(ctx)
			}
		}
		if err != nil {
			break
		}
	}

	if c.opts.TurnOffOnExit {
		for i := range c.colors {
			c.colors[i] = lights.Black
		}
		c.flushDetached(ctx)
	}
	logger.Info("LED controller stopped")
	return nil
}

// collect blocks for the first message and then keeps reading until the
// window closes or the batch is full. The returned error is only ever
// ctx.Err().
func (c *Controller) collect(ctx context.Context) ([]Message, error) {
	batch := c.batch[:0]

	select {
	case <-ctx.Done():
		return batch, ctx.Err()
	case m := <-c.messages:
		batch = append(batch, m)
	}

	window := c.opts.Tick
	if batch[0].Urgent {
		window = c.opts.UrgentWindow
	}
	deadline := c.clock.Now().Add(window)
	timer := c.clock.Timer(window)
	defer func() { timer.Stop() }()

	for len(batch) < c.opts.BatchLimit {
		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-timer.C:
			return batch, nil
		case m := <-c.messages:
			batch = append(batch, m)
			if !m.Urgent {
				continue
			}
			urgentDeadline := c.clock.Now().Add(c.opts.UrgentWindow)
			if urgentDeadline.Before(deadline) {
				deadline = urgentDeadline
				timer.Stop()
				timer = c.clock.Timer(c.opts.UrgentWindow)
			}
		}
	}

	if pending := len(c.messages); pending > 0 {
		c.warnOverload(pending)
	}
	return batch, nil
}

func (c *Controller) apply(batch []Message) {
	for _, m := range batch {
		if m.All {
			for i := range c.colors {
				c.colors[i] = m.Color
			}
			continue
		}
		if int(m.Index) >= len(c.colors) {
			logger.With(zap.Uint32("index", m.Index), zap.Int("leds", len(c.colors))).
				Debug("Dropping update for LED out of range")
			continue
		}
		c.colors[m.Index] = m.Color
	}
}

func (c *Controller) flush(ctx context.Context) {
	for i, col := range c.colors {
		c.scratch[i] = util.LightCurve(c.opts.LightCurveK, col)
	}
	if err := c.device.SetColors(ctx, c.scratch); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to write LED colors")
	}
}

// flushDetached writes even though ctx is already done.
func (c *Controller) flushDetached(ctx context.Context) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWriteTimeout)
	defer cancel()
	c.flush(writeCtx)
}

func (c *Controller) warnOverload(pending int) {
	now := c.clock.Now()
	if !c.lastWarning.IsZero() && now.Sub(c.lastWarning) < warningInterval {
		return
	}
	c.lastWarning = now
	logger.With(zap.Int("batchLimit", c.opts.BatchLimit), zap.Int("pending", pending)).
		Warn("More LED updates queued than one flush can carry. Effects are producing faster than the keyboard can be written.")
}
