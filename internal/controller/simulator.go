package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
)

// ----------- Simulation constants -----------
const (
	AmbientGas      = 150.0 // baseline gas reading
	GasDriftPerTick = 15.0  // max random walk per tick
	GasFloor        = 50.0
	GasCeiling      = 900.0
	RainToggleProb  = 0.02 // chance per tick that rain starts or stops

	defaultSimTick       = time.Second
	defaultSimTravelTime = 1500 * time.Millisecond
)

// simTargets maps command tokens to the actuator they move and its target.
var simTargets = map[string]struct {
	door  bool
	value string
}{
	"open-door":    {door: true, value: models.PositionOpen},
	"close-door":   {door: true, value: models.PositionClosed},
	"open-canopy":  {door: false, value: models.PositionOpen},
	"close-canopy": {door: false, value: models.PositionClosed},
}

// Simulator is an in-process controller. It reports a full reading every tick
// and answers commands the way the firmware does: "transitioning" at once,
// the target position after the travel time.
type Simulator struct {
	tick       time.Duration
	travelTime time.Duration
	log        *logger.Logger

	mu     sync.Mutex
	state  models.DeviceState
	rng    *rand.Rand
	closed bool

	once  sync.Once
	lines chan string
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewSimulator(cfg config.SimulatorConfig, log *logger.Logger) *Simulator {
	tick := cfg.Tick
	if tick <= 0 {
		tick = defaultSimTick
	}
	travel := cfg.TravelTime
	if travel <= 0 {
		travel = defaultSimTravelTime
	}
	return &Simulator{
		tick:       tick,
		travelTime: travel,
		log:        log,
		state: models.DeviceState{
			Flame:  models.FlameNone,
			Rain:   models.RainNone,
			Gas:    AmbientGas,
			Door:   models.PositionClosed,
			Canopy: models.PositionClosed,
		},
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		lines: make(chan string, lineBuffer),
		stop:  make(chan struct{}),
	}
}

// Lines starts the tick loop on first call.
func (s *Simulator) Lines(ctx context.Context) <-chan string {
	s.once.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
	})
	return s.lines
}

// run ticks until ctx is canceled or the simulator is closed.
func (s *Simulator) run(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			s.mu.Lock()
			s.step()
			reading := s.state
			s.mu.Unlock()
			s.emit(reading)
		}
	}
}

// step advances the sensors by one tick. Caller holds mu.
func (s *Simulator) step() {
	s.state.Gas += (s.rng.Float64()*2 - 1) * GasDriftPerTick
	s.state.Gas = min(max(s.state.Gas, GasFloor), GasCeiling)

	if s.rng.Float64() < RainToggleProb {
		if s.state.Rain == models.RainPresent {
			s.state.Rain = models.RainNone
		} else {
			s.state.Rain = models.RainPresent
		}
	}
}

// emit marshals v and queues it; a full buffer drops the reading.
func (s *Simulator) emit(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Errorw("simulator_marshal_failed", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.lines <- string(b):
	default:
		s.log.Warnw("telemetry_line_dropped", "reason", "buffer_full")
	}
}

// Send starts moving the actuator named by token.
func (s *Simulator) Send(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, ok := simTargets[token]
	if !ok {
		return fmt.Errorf("simulator: unknown command %q", token)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrLinkClosed
	}
	s.setPosition(target.door, models.PositionTransitioning)
	// registered under mu so Close cannot be waiting already
	s.wg.Add(1)
	s.mu.Unlock()
	s.emit(positionUpdate(target.door, models.PositionTransitioning))

	go func() {
		defer s.wg.Done()
		select {
		case <-time.After(s.travelTime):
		case <-s.stop:
			return
		}
		s.mu.Lock()
		s.setPosition(target.door, target.value)
		s.mu.Unlock()
		s.emit(positionUpdate(target.door, target.value))
	}()
	return nil
}

// setPosition moves the door or the canopy. Caller holds mu.
func (s *Simulator) setPosition(door bool, value string) {
	if door {
		s.state.Door = value
	} else {
		s.state.Canopy = value
	}
}

func positionUpdate(door bool, value string) models.StateUpdate {
	if door {
		return models.StateUpdate{Door: &value}
	}
	return models.StateUpdate{Canopy: &value}
}

// Close stops the tick loop and pending moves, then closes the line channel.
func (s *Simulator) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.lines)
	return nil
}
