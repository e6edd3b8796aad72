package starfield

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestFirstStepColorsEveryLED(t *testing.T) {
	f := newField([]uint32{3, 4, 5, 9}, DefaultOptions(), testRand())

	msgs := f.step(0)
	var leds []uint32
	for _, m := range msgs {
		leds = append(leds, m.Index)
	}
	assert.Equal(t, []uint32{3, 4, 5, 9}, leds)
	assert.Empty(t, f.step(0), "nothing changes without time passing")
}

func TestPhasesWrapAndStayInRange(t *testing.T) {
	opts := DefaultOptions()
	f := newField([]uint32{0, 1, 2}, opts, testRand())
	f.step(0)

	for i := 0; i < 500; i++ {
		f.step(37 * time.Millisecond)
		for _, s := range f.stars {
			require.GreaterOrEqual(t, s.phase, 0.0)
			require.Less(t, s.phase, 1.0)
			require.GreaterOrEqual(t, s.period, opts.AnimationTime-opts.TimeVariation)
			require.LessOrEqual(t, s.period, opts.AnimationTime+opts.TimeVariation)
		}
	}
}

func TestEveryLEDKeepsAnimating(t *testing.T) {
	f := newField([]uint32{0, 1, 2, 3, 4, 5}, DefaultOptions(), testRand())
	f.step(0)

	updated := map[uint32]int{}
	for i := 0; i < 100; i++ {
		for _, m := range f.step(50 * time.Millisecond) {
			updated[m.Index]++
		}
	}
	for led := uint32(0); led < 6; led++ {
		assert.Greater(t, updated[led], 10, "led %d", led)
	}
}

func TestStarColorsFollowCurve(t *testing.T) {
	opts := DefaultOptions()
	opts.TimeVariation = 0
	f := newField([]uint32{0}, opts, testRand())
	f.stars[0].phase = 0
	f.step(0)

	msgs := f.step(opts.AnimationTime / 2)
	require.Len(t, msgs, 1)
	assert.Equal(t, opts.Target, msgs[0].Color)

	msgs = f.step(opts.AnimationTime / 2)
	require.Len(t, msgs, 1)
	assert.Equal(t, opts.Background, msgs[0].Color)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan keyboard.Message, 256)
	layout := keyboard.NewLayout([]keyboard.Slot{keyboard.LED(1), keyboard.Gap, keyboard.LED(2)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, keyboard.NewSender(ch), layout, DefaultOptions(), testRand())
	}()

	seen := map[uint32]lights.Color{}
	for len(seen) < 2 {
		select {
		case m := <-ch:
			seen[m.Index] = m.Color
		case <-time.After(time.Second):
			t.Fatal("starfield sent nothing")
		}
	}
	assert.Contains(t, seen, uint32(1))
	assert.Contains(t, seen, uint32(2))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("starfield did not stop")
	}
}

func TestRunAdvancesWithTheClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	layout := keyboard.NewLayout([]keyboard.Slot{keyboard.LED(1), keyboard.Gap, keyboard.LED(2)})
	mock := clock.NewMock()
	opts := DefaultOptions()
	opts.Interval = 250 * time.Millisecond
	opts.Clock = mock

	want := newField(layout.LEDs(), opts, testRand())
	first := want.step(0)
	next := want.step(opts.Interval)
	require.NotEmpty(t, next)

	ch := make(chan keyboard.Message, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, keyboard.NewSender(ch), layout, opts, testRand())
	}()

	receive := func(n int) []keyboard.Message {
		var got []keyboard.Message
		for len(got) < n {
			select {
			case m := <-ch:
				got = append(got, m)
			case <-time.After(time.Second):
				t.Fatalf("starfield sent %d of %d messages", len(got), n)
			}
		}
		return got
	}
	assert.Equal(t, first, receive(len(first)))

	mock.Add(opts.Interval)
	assert.Equal(t, next, receive(len(next)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("starfield did not stop")
	}
}
