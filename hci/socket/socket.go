//go:build linux

// Package socket implements the HCI transport on a raw Bluetooth socket.
package socket

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/maribu/ble-adv/hci"
	"github.com/maribu/ble-adv/hci/cmd"
	"github.com/maribu/ble-adv/hci/evt"
)

const (
	pktTypeCommand = 0x01
	pktTypeEvent   = 0x04

	// Event header plus the maximum parameter block.
	maxEventSize = 1 + 2 + 255

	hciMaxDevices = 16

	solHCI       = 0
	hciFilterOpt = 2
)

// filter mirrors the kernel's struct hci_filter. The event mask holds 64
// bits; higher event codes share bits modulo 64, as bluez maps them.
type filter struct {
	typeMask  uint32
	eventMask [2]uint32
}

func newFilter(f hci.EventFilter) filter {
	var k filter
	for _, t := range f.PacketTypes {
		k.typeMask |= 1 << (uint32(t) & 31)
	}
	for _, e := range f.Events {
		k.eventMask[(e&0x3F)>>5] |= 1 << (uint32(e) & 31)
	}
	return k
}

func (k filter) marshal() string {
	b := make([]byte, 14)
	binary.LittleEndian.PutUint32(b[0:], k.typeMask)
	binary.LittleEndian.PutUint32(b[4:], k.eventMask[0])
	binary.LittleEndian.PutUint32(b[8:], k.eventMask[1])
	return string(b)
}

// cmdFilter admits exactly the replies SubmitCommand waits for.
var cmdFilter = newFilter(hci.EventFilter{
	PacketTypes: []uint8{pktTypeEvent},
	Events:      []uint8{evt.CommandCompleteCode, evt.CommandStatusCode},
})

// allEvents is installed at open time. A freshly bound raw channel carries
// an empty kernel filter that delivers nothing.
var allEvents = filter{
	typeMask:  1 << pktTypeEvent,
	eventMask: [2]uint32{^uint32(0), ^uint32(0)},
}

// Socket is a raw HCI channel bound to one local adapter. Read and write
// sides are independently serialized.
type Socket struct {
	fd  int
	dev int
	rmu sync.Mutex
	wmu sync.Mutex

	// filter is the filter the owner installed, reinstated after every
	// command exchange.
	fmu    sync.Mutex
	filter filter

	sockopt func(level, opt int, v string) error
}

// New opens and binds the HCI device with the given id. Passing -1 selects
// the first adapter that accepts a raw channel binding.
func New(id int) (*Socket, error) {
	if id != -1 {
		return open(id)
	}
	for i := 0; i < hciMaxDevices; i++ {
		if s, err := open(i); err == nil {
			return s, nil
		}
	}
	return nil, errors.New("no supported devices available")
}

func open(id int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "open hci socket")
	}
	sa := &unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind hci%d", id)
	}
	s := &Socket{fd: fd, dev: id, filter: allEvents}
	s.sockopt = func(level, opt int, v string) error {
		return unix.SetsockoptString(fd, level, opt, v)
	}
	if err := s.applyFilter(allEvents); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// ReadEvent blocks until one event frame arrives and returns it, packet
// indicator included. Interrupted reads are retried transparently.
func (s *Socket) ReadEvent() ([]byte, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	b := make([]byte, 1+maxEventSize)
	for {
		n, err := unix.Read(s.fd, b)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read hci event")
		}
		if n == 0 {
			return nil, io.EOF
		}
		p := make([]byte, n)
		copy(p, b[:n])
		return p, nil
	}
}

// SubmitCommand sends c and blocks until the controller acknowledges it with
// a Command Complete or Command Status event, or the timeout expires. The
// owner's filter may exclude those replies, so a reply filter is swapped in
// for the exchange and the owner's reinstated afterwards, the way bluez
// hci_send_req does. Other event frames arriving in between are discarded.
func (s *Socket) SubmitCommand(c cmd.Command, timeout time.Duration) ([]byte, error) {
	b := make([]byte, 4+c.Len())
	b[0] = pktTypeCommand
	b[1] = byte(c.OpCode())
	b[2] = byte(c.OpCode() >> 8)
	b[3] = byte(c.Len())
	if err := c.Marshal(b[4:]); err != nil {
		return nil, errors.Wrapf(err, "marshal command 0x%04X", c.OpCode())
	}

	s.fmu.Lock()
	owned := s.filter
	s.fmu.Unlock()
	if err := s.applyFilter(cmdFilter); err != nil {
		return nil, err
	}
	rp, err := s.exchange(b, c.OpCode(), time.Now().Add(timeout))
	if ferr := s.applyFilter(owned); err == nil {
		err = ferr
	}
	return rp, err
}

func (s *Socket) exchange(b []byte, opcode int, deadline time.Time) ([]byte, error) {
	s.wmu.Lock()
	n, err := unix.Write(s.fd, b)
	s.wmu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "send command 0x%04X", opcode)
	}
	if n != len(b) {
		return nil, errors.Errorf("short command write: %d of %d bytes", n, len(b))
	}

	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, errors.Errorf("command 0x%04X timed out", opcode)
		}
		if err := s.waitReadable(remain); err != nil {
			return nil, err
		}
		p, err := s.ReadEvent()
		if err != nil {
			return nil, err
		}
		if len(p) < 3+4 || p[0] != pktTypeEvent {
			continue
		}
		switch p[1] {
		case evt.CommandCompleteCode:
			e := evt.CommandComplete(p[3:])
			if int(e.CommandOpcode()) != opcode {
				continue
			}
			return e.ReturnParameters(), nil
		case evt.CommandStatusCode:
			e := evt.CommandStatus(p[3:])
			if int(e.CommandOpcode()) != opcode {
				continue
			}
			return []byte{e.Status()}, nil
		}
	}
}

func (s *Socket) waitReadable(d time.Duration) error {
	ms := int(d / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	for {
		pfd := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "poll hci socket")
		}
		if n == 0 {
			return errors.New("poll hci socket timed out")
		}
		return nil
	}
}

// InstallFilter restricts subsequent reads to the given event classes via
// the kernel's HCI_FILTER socket option.
func (s *Socket) InstallFilter(f hci.EventFilter) error {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	k := newFilter(f)
	if err := s.applyFilter(k); err != nil {
		return err
	}
	s.filter = k
	return nil
}

func (s *Socket) applyFilter(k filter) error {
	if err := s.sockopt(solHCI, hciFilterOpt, k.marshal()); err != nil {
		return errors.Wrap(err, "set hci filter")
	}
	return nil
}

// Close releases the socket. Callers should disable scanning first.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
