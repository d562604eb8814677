package sdspi

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CardInfo describes an initialized card.
type CardInfo struct {
	SupportsHighCapacity   bool
	UsesLegacyVoltageCheck bool
	// OCR is only set when the register was read during initialization.
	OCR OCR
}

// Card drives an SD card in SPI mode through its initialization sequence.
//
// The transport is held exclusively for the duration of each exchange and
// released before any polling delay. A Card itself is not safe for
// concurrent use.
type Card struct {
	mu  sync.Mutex // bus lease
	t   Transport
	cfg Config
	fr  framer
	log *slog.Logger

	state State
	err   *InitError
	info  CardInfo

	idle      bool  // last CMD0 left the card in idle state
	idleErr   error // why the last CMD0 did not
	idleTries int
	v2        bool // card answered CMD8 with the check pattern
	pollStart time.Time
}

// New returns a Card in the PoweringUp state talking through t.
func New(t Transport, opts ...Option) *Card {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "sdspi")
	}
	return &Card{
		t:   t,
		cfg: cfg,
		fr:  framer{fixedCMD0: cfg.FixedCMD0CRC},
		log: cfg.Logger,
	}
}

func (c *Card) State() State { return c.state }

// Info returns what was learned about the card. It is meaningful only in
// the Ready state.
func (c *Card) Info() CardInfo { return c.info }

// Initialize runs the initialization sequence from power up until the card
// is Ready or Failed. On failure the returned error is an *InitError.
// Calling it again restarts the sequence.
func (c *Card) Initialize() (CardInfo, error) {
	c.state = PoweringUp
	c.err = nil
	c.info = CardInfo{}
	c.v2 = false

	for !c.state.terminal() {
		c.step()
	}
	if c.state == Failed {
		return CardInfo{}, c.err
	}
	return c.info, nil
}

func (c *Card) step() {
	switch c.state {
	case PoweringUp:
		c.powerUp()
	case AwaitingIdle:
		c.awaitIdle()
	case NegotiatingVoltage:
		c.negotiateVoltage()
	case PollingOperatingCondition:
		c.pollOperatingCondition()
	}
}

func (c *Card) setState(s State) {
	if s != c.state {
		c.log.Debug("state", "from", c.state, "to", s)
	}
	c.state = s
}

func (c *Card) fail(reason FailureReason, err error) {
	c.err = &InitError{Reason: reason, State: c.state, Err: err}
	c.log.Warn("initialization failed", "state", c.state, "reason", reason, "err", err)
	c.setState(Failed)
}

// failCommand fails with the reason matching a command error.
func (c *Card) failCommand(err error) {
	var (
		te  *TransportError
		rej *CommandRejectedError
	)
	switch {
	case errors.As(err, &te):
		c.fail(ReasonTransport, err)
	case errors.As(err, &rej) && rej.Status.IllegalCommand():
		c.fail(ReasonUnexpectedIllegalCommand, err)
	case errors.As(err, &rej):
		c.fail(ReasonCommandRejected, err)
	case errors.Is(err, ErrInvalidCommand):
		c.fail(ReasonInvalidCommand, err)
	default:
		c.fail(ReasonMalformedResponse, err)
	}
}

// powerUp clocks the preamble with the card deselected and sends the first
// CMD0. Repeating it restarts the CMD0 attempts and stays in AwaitingIdle.
func (c *Card) powerUp() {
	if err := c.t.Configure(c.cfg.Bus); err != nil {
		c.fail(ReasonTransport, &TransportError{Op: "configure", Err: err})
		return
	}
	if err := c.preamble(); err != nil {
		c.fail(ReasonTransport, err)
		return
	}
	c.idleTries = 0
	if c.goIdle() {
		c.setState(AwaitingIdle)
	}
}

// goIdle sends CMD0 and records whether the card entered the idle state. It
// returns false after failing on a transport error.
func (c *Card) goIdle() bool {
	c.idleTries++
	resp, err := c.command(Command{Index: cmdGoIdleState})
	var te *TransportError
	switch {
	case errors.As(err, &te):
		c.fail(ReasonTransport, err)
		return false
	case err != nil:
		c.idle, c.idleErr = false, err
	case !resp.Status().InIdleState():
		c.idle, c.idleErr = false, fmt.Errorf("CMD0 answered %s", resp.Status())
	default:
		c.idle, c.idleErr = true, nil
	}
	return true
}

func (c *Card) awaitIdle() {
	if c.idle {
		if c.cfg.CRCChecking {
			cmd := Command{Index: cmdCRCOnOff, Argument: 1}
			if _, err := c.checked(cmd); err != nil {
				c.failCommand(err)
				return
			}
		}
		c.setState(NegotiatingVoltage)
		return
	}
	if c.idleTries >= c.cfg.IdleAttempts {
		c.fail(ReasonNoIdleResponse, c.idleErr)
		return
	}
	c.cfg.Clock.Sleep(c.cfg.IdleRetryInterval)
	c.goIdle()
}

func (c *Card) negotiateVoltage() {
	cmd := Command{Index: cmdSendIfCond, Argument: ifCondArg}
	resp, err := c.command(cmd)
	if err != nil {
		c.failCommand(err)
		return
	}

	st := resp.Status()
	if st.IllegalCommand() {
		// Version 1.x card: no CMD8, no HCS.
		c.info.UsesLegacyVoltageCheck = true
		c.enterPolling()
		return
	}
	if err := rejection(cmd, resp); err != nil {
		c.failCommand(err)
		return
	}

	r7 := resp.(R7)
	if r7.CheckPattern() != ifCondPattern || r7.Voltage() != ifCondVoltage {
		c.fail(ReasonVoltageMismatch, fmt.Errorf("CMD8 echoed 0x%08X, sent 0x%08X", r7.Echo, uint32(ifCondArg)))
		return
	}
	c.v2 = true
	c.enterPolling()
}

func (c *Card) enterPolling() {
	c.pollStart = c.cfg.Clock.Now()
	c.setState(PollingOperatingCondition)
}

// pollOperatingCondition runs one CMD55+ACMD41 round and sleeps if the card
// is still initializing.
func (c *Card) pollOperatingCondition() {
	var arg uint32
	if c.v2 {
		arg = hcsBit
	}
	resp, err := c.checked(Command{Index: acmdSendOpCond, Argument: arg, App: true})
	if err != nil {
		c.failCommand(err)
		return
	}
	if !resp.Status().InIdleState() {
		c.ready()
		return
	}
	if elapsed := c.cfg.Clock.Now().Sub(c.pollStart); elapsed >= c.cfg.InitTimeout {
		c.fail(ReasonInitTimeout, fmt.Errorf("card still idle after %s", elapsed))
		return
	}
	c.cfg.Clock.Sleep(c.cfg.PollInterval)
}

func (c *Card) ready() {
	c.info.SupportsHighCapacity = c.v2
	if c.v2 && c.cfg.ReadOCR {
		ocr, err := c.readOCR()
		if err != nil {
			c.failCommand(err)
			return
		}
		c.info.OCR = ocr
		c.info.SupportsHighCapacity = ocr.CCS()
	}
	c.setState(Ready)
	c.log.Info("card ready",
		"highCapacity", c.info.SupportsHighCapacity,
		"legacy", c.info.UsesLegacyVoltageCheck)
}

// ReadOCR reads the operation conditions register (CMD58).
func (c *Card) ReadOCR() (OCR, error) {
	if c.state != Ready {
		return 0, ErrNotReady
	}
	return c.readOCR()
}

func (c *Card) readOCR() (OCR, error) {
	resp, err := c.checked(Command{Index: cmdReadOCR})
	if err != nil {
		return 0, err
	}
	return resp.(R3).OCR, nil
}

// SendStatus asks the card for its status (CMD13).
func (c *Card) SendStatus() (R2, error) {
	if c.state != Ready {
		return R2{}, ErrNotReady
	}
	resp, err := c.checked(Command{Index: cmdSendStatus})
	if err != nil {
		return R2{}, err
	}
	return resp.(R2), nil
}

// checked sends cmd, preceded by CMD55 for application commands, and
// turns a refused command into a *CommandRejectedError.
func (c *Card) checked(cmd Command) (Response, error) {
	if cmd.App {
		if _, err := c.checked(Command{Index: cmdAppCmd}); err != nil {
			return nil, err
		}
	}
	resp, err := c.command(cmd)
	if err != nil {
		return nil, err
	}
	if err := rejection(cmd, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// command sends one frame and decodes the response in a single chip select
// cycle.
func (c *Card) command(cmd Command) (Response, error) {
	frame, err := c.fr.frame(cmd)
	if err != nil {
		return nil, err
	}

	kind := responseKind(cmd.Index)
	tx := bytes.Repeat([]byte{c.cfg.Bus.IdleFill}, frameLen+c.cfg.ResponseBudget+kind.Len())
	copy(tx, frame[:])

	rx, err := c.transact(tx)
	if err != nil {
		return nil, err
	}
	resp, err := decode(cmd.Index, rx[frameLen:])
	if err != nil {
		c.log.Debug("no response", "cmd", cmd, "rx", fmt.Sprintf("% X", rx[frameLen:]))
		return nil, err
	}
	c.log.Debug("command", "cmd", cmd, "frame", fmt.Sprintf("% X", frame), "kind", resp.Kind(), "r1", resp.Status())
	return resp, nil
}

// transact wraps an exchange with chip select assertion.
func (c *Card) transact(tx []byte) (rx []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.t.AssertChipSelect(); err != nil {
		return nil, &TransportError{Op: "assert chip select", Err: err}
	}
	defer func() {
		if csErr := c.t.DeassertChipSelect(); csErr != nil && err == nil {
			err = &TransportError{Op: "deassert chip select", Err: csErr}
		}
	}()

	rx, err = c.t.Exchange(tx)
	if err != nil {
		return nil, &TransportError{Op: "exchange", Err: err}
	}
	if len(rx) != len(tx) {
		return nil, &TransportError{Op: "exchange", Err: fmt.Errorf("read %d bytes, wrote %d", len(rx), len(tx))}
	}
	return rx, nil
}

// preamble clocks at least 74 cycles with the card deselected.
func (c *Card) preamble() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.t.DeassertChipSelect(); err != nil {
		return &TransportError{Op: "deassert chip select", Err: err}
	}
	tx := bytes.Repeat([]byte{c.cfg.Bus.IdleFill}, c.cfg.PreambleBytes)
	if _, err := c.t.Exchange(tx); err != nil {
		return &TransportError{Op: "preamble", Err: err}
	}
	return nil
}
