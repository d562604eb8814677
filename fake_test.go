package sdspi

import (
	"bytes"
	"encoding/binary"
	"time"
)

// sentFrame is a command frame as seen by the card.
type sentFrame struct {
	index    uint8
	arg      uint32
	crc      byte
	selected bool
}

// fakeCard answers command frames from scripted replies. The last reply
// queued for a command is repeated; a command without replies gets only
// 0xFF filler.
type fakeCard struct {
	replies map[uint8][][]byte
	ncr     int // filler bytes between frame and response

	selected   bool
	configured []BusConfig
	preamble   int // bytes clocked while deselected
	frames     []sentFrame
	exchanges  int

	failAt  int // exchange number that fails, 1-based
	failErr error
}

func newFakeCard(replies map[uint8][][]byte) *fakeCard {
	return &fakeCard{replies: replies, ncr: 1}
}

func (f *fakeCard) Configure(c BusConfig) error {
	f.configured = append(f.configured, c)
	return nil
}

func (f *fakeCard) AssertChipSelect() error   { f.selected = true; return nil }
func (f *fakeCard) DeassertChipSelect() error { f.selected = false; return nil }

func (f *fakeCard) Exchange(tx []byte) ([]byte, error) {
	f.exchanges++
	if f.failAt == f.exchanges {
		return nil, f.failErr
	}

	rx := bytes.Repeat([]byte{0xFF}, len(tx))
	if !f.selected {
		f.preamble += len(tx)
		return rx, nil
	}
	if len(tx) < frameLen || tx[0]&0xC0 != frameStart {
		return rx, nil
	}

	idx := tx[0] & maxCmdIdx
	f.frames = append(f.frames, sentFrame{
		index:    idx,
		arg:      binary.BigEndian.Uint32(tx[1:5]),
		crc:      tx[5],
		selected: f.selected,
	})
	if reply := f.next(idx); reply != nil {
		copy(rx[frameLen+f.ncr:], reply)
	}
	return rx, nil
}

func (f *fakeCard) next(idx uint8) []byte {
	q := f.replies[idx]
	switch len(q) {
	case 0:
		return nil
	case 1:
		return q[0]
	}
	f.replies[idx] = q[1:]
	return q[0]
}

// indexes returns the command indexes in the order they were sent.
func (f *fakeCard) indexes() []uint8 {
	idx := make([]uint8, len(f.frames))
	for i, fr := range f.frames {
		idx[i] = fr.index
	}
	return idx
}

// args returns the arguments sent with command index idx.
func (f *fakeCard) args(idx uint8) []uint32 {
	var args []uint32
	for _, fr := range f.frames {
		if fr.index == idx {
			args = append(args, fr.arg)
		}
	}
	return args
}

// fakeClock advances only when slept on. It records whether the card was
// selected during any sleep.
type fakeClock struct {
	now           time.Time
	sleeps        int
	card          *fakeCard
	sleptSelected bool
}

func newFakeClock(card *fakeCard) *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), card: card}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	if c.card != nil && c.card.selected {
		c.sleptSelected = true
	}
	c.now = c.now.Add(d)
}
