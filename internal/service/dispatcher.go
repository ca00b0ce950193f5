package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
)

// Command tokens accepted on the control endpoint and written to the controller.
const (
	CmdOpenDoor    = "open-door"
	CmdCloseDoor   = "close-door"
	CmdOpenCanopy  = "open-canopy"
	CmdCloseCanopy = "close-canopy"
)

const (
	executedPrefix        = "Executed: "
	defaultCommandTimeout = 3 * time.Second
)

// Dispatch outcomes reported to the Recorder.
const (
	OutcomeSent      = "sent"
	OutcomeInvalid   = "invalid"
	OutcomeTransport = "transport_error"
)

// Command is one entry of the command table.
type Command struct {
	Token string
	Label string

	door   string
	canopy string
}

func (c Command) update() models.StateUpdate {
	var u models.StateUpdate
	if c.door != "" {
		d := c.door
		u.Door = &d
	}
	if c.canopy != "" {
		cn := c.canopy
		u.Canopy = &cn
	}
	return u
}

var commandTable = map[string]Command{
	CmdOpenDoor:    {Token: CmdOpenDoor, Label: "Open door", door: models.PositionOpen},
	CmdCloseDoor:   {Token: CmdCloseDoor, Label: "Close door", door: models.PositionClosed},
	CmdOpenCanopy:  {Token: CmdOpenCanopy, Label: "Open canopy", canopy: models.PositionOpen},
	CmdCloseCanopy: {Token: CmdCloseCanopy, Label: "Close canopy", canopy: models.PositionClosed},
}

// LookupCommand resolves a token against the command table.
func LookupCommand(token string) (Command, bool) {
	c, ok := commandTable[token]
	return c, ok
}

// CommandTransport delivers a command token to the controller.
type CommandTransport interface {
	Send(ctx context.Context, token string) error
}

// CommandService validates operator commands, forwards them to the controller
// and records their effect.
type CommandService struct {
	core      *Core
	transport CommandTransport
	timeout   time.Duration
	log       *logger.Logger
	recorder  Recorder
}

func NewCommandService(core *Core, transport CommandTransport, timeout time.Duration, log *logger.Logger) *CommandService {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &CommandService{
		core:      core,
		transport: transport,
		timeout:   timeout,
		log:       log,
		recorder:  core.recorder,
	}
}

// Dispatch sends token to the controller. On success the target state is
// applied optimistically, an "Executed" entry is appended and the action clock
// is stamped. On failure nothing changes.
func (s *CommandService) Dispatch(ctx context.Context, token string) error {
	cmd, ok := LookupCommand(token)
	if !ok {
		s.recorder.CommandDispatched(token, OutcomeInvalid)
		return fmt.Errorf("%w: %q", ErrInvalidCommand, token)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.transport.Send(sendCtx, cmd.Token); err != nil {
		s.recorder.CommandDispatched(cmd.Token, OutcomeTransport)
		s.log.Errorw("command_dispatch_failed", "command", cmd.Token, "err", err)
		if errors.Is(err, ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	s.core.commitCommand(ctx, cmd)
	s.recorder.CommandDispatched(cmd.Token, OutcomeSent)
	s.log.Infow("command_dispatched", "command", cmd.Token)
	return nil
}
