package hci

import (
	"time"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/hci/cmd"
	"github.com/maribu/ble-adv/hci/evt"
)

var logger = log.New("scan")

// ScanState is the controller-side scan state a Scanner last established.
type ScanState int

// Scan states.
const (
	Disabled ScanState = iota
	ParametersSet
	Enabled
)

func (s ScanState) String() string {
	switch s {
	case Disabled:
		return "Disabled"
	case ParametersSet:
		return "ParametersSet"
	case Enabled:
		return "Enabled"
	}
	return "Unknown"
}

// ScanOptions selects how scanning is performed.
type ScanOptions struct {
	// Passive scans do not request scan responses from peripherals.
	Passive bool
	// FilterDuplicates lets the controller suppress repeated reports.
	FilterDuplicates bool
	// PublicAddress uses the public device address for active scans.
	// Passive scans always use the public address.
	PublicAddress bool
}

const (
	scanInterval = 0x0010 // N * 0.625 msec
	scanWindow   = 0x0010 // N * 0.625 msec
	cmdTimeout   = 10 * time.Second
)

// Scanner drives the LE scan state of a single transport. It issues blocking
// commands only; no background work is spawned.
type Scanner struct {
	t     Transport
	state ScanState
}

// NewScanner returns a Scanner driving t. The transport stays owned by the
// caller, which must disable scanning before releasing it.
func NewScanner(t Transport) *Scanner {
	return &Scanner{t: t}
}

// State returns the scan state established by the last control call.
func (s *Scanner) State() ScanState { return s.state }

// SetScanning enables or disables advertisement scanning.
//
// Enabling sets the scan parameters, enables scanning and installs an event
// filter for LE Meta events. A controller that is already mid-scan rejects
// the parameter change as busy; that one condition is recovered by forcing
// scanning off and retrying the parameters exactly once. Any error on the
// enable path means scanning must be assumed off.
func (s *Scanner) SetScanning(enable bool, opt ScanOptions) error {
	s.state = Disabled
	if !enable {
		if err := s.send(&cmd.LESetScanEnable{LEScanEnable: 0}); err != nil {
			return errors.Wrap(err, "disable scan")
		}
		logger.Info("scanning disabled")
		return nil
	}

	p := scanParams(opt)
	if err := s.send(p); err != nil {
		if !isBusy(err) {
			return errors.Wrap(err, "set scan parameters")
		}
		logger.Info("controller busy, disabling scan before retry")
		if err := s.send(&cmd.LESetScanEnable{LEScanEnable: 0}); err != nil {
			return errors.Wrap(err, "disable scan for retry")
		}
		if err := s.send(p); err != nil {
			return errors.Wrap(err, "set scan parameters retry")
		}
	}
	s.state = ParametersSet

	e := &cmd.LESetScanEnable{LEScanEnable: 1}
	if opt.FilterDuplicates {
		e.FilterDuplicates = 1
	}
	if err := s.send(e); err != nil {
		return errors.Wrap(err, "enable scan")
	}
	if err := s.t.InstallFilter(EventFilter{
		PacketTypes: []uint8{pktTypeEvent},
		Events:      []uint8{evt.LEMetaCode},
	}); err != nil {
		return errors.Wrap(err, "install event filter")
	}
	s.state = Enabled
	logger.Info("scanning enabled")
	return nil
}

// ReadAdvertisement reads one event frame from the transport and assembles
// it into a Record. An ErrNotAdvertisement return means the frame belongs to
// another event class; decode errors apply to that event only and never
// poison later reads.
func (s *Scanner) ReadAdvertisement() (*adv.Record, error) {
	b, err := s.t.ReadEvent()
	if err != nil {
		return nil, errors.Wrap(err, "read event")
	}
	return UnmarshalAdvertisingReport(b)
}

func scanParams(opt ScanOptions) *cmd.LESetScanParameters {
	p := &cmd.LESetScanParameters{
		LEScanType:           0x01, // 0x00: passive, 0x01: active
		LEScanInterval:       scanInterval,
		LEScanWindow:         scanWindow,
		OwnAddressType:       0x01, // 0x00: public, 0x01: random
		ScanningFilterPolicy: 0x00, // accept all
	}
	if opt.Passive {
		p.LEScanType = 0x00
	}
	// A passive scan never transmits, so the public address exposes nothing.
	if opt.Passive || opt.PublicAddress {
		p.OwnAddressType = 0x00
	}
	return p
}

func (s *Scanner) send(c cmd.Command) error {
	b, err := s.t.SubmitCommand(c, cmdTimeout)
	if err != nil {
		return err
	}
	if len(b) > 0 && b[0] != 0x00 {
		return ErrCommand(b[0])
	}
	return nil
}
