package hci_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maribu/ble-adv/hci"
	"github.com/maribu/ble-adv/hci/cmd"
)

// fakeTransport records every command and returns canned statuses in order.
type fakeTransport struct {
	cmds      []cmd.Command
	statuses  []byte
	errs      []error
	filters   []hci.EventFilter
	filterErr error

	events  [][]byte
	readErr error
}

func (f *fakeTransport) SubmitCommand(c cmd.Command, _ time.Duration) ([]byte, error) {
	i := len(f.cmds)
	f.cmds = append(f.cmds, c)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	st := byte(0x00)
	if i < len(f.statuses) {
		st = f.statuses[i]
	}
	return []byte{st}, nil
}

func (f *fakeTransport) ReadEvent() ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	b := f.events[0]
	f.events = f.events[1:]
	return b, nil
}

func (f *fakeTransport) InstallFilter(flt hci.EventFilter) error {
	f.filters = append(f.filters, flt)
	return f.filterErr
}

func (f *fakeTransport) Close() error { return nil }

func scanEnables(t *testing.T, c cmd.Command) *cmd.LESetScanEnable {
	t.Helper()
	e, ok := c.(*cmd.LESetScanEnable)
	require.True(t, ok, "expected LESetScanEnable, got %T", c)
	return e
}

func scanParameters(t *testing.T, c cmd.Command) *cmd.LESetScanParameters {
	t.Helper()
	p, ok := c.(*cmd.LESetScanParameters)
	require.True(t, ok, "expected LESetScanParameters, got %T", c)
	return p
}

func TestSetScanning_Enable(t *testing.T) {
	ft := &fakeTransport{}
	s := hci.NewScanner(ft)

	require.NoError(t, s.SetScanning(true, hci.ScanOptions{FilterDuplicates: true}))
	require.Len(t, ft.cmds, 2)

	p := scanParameters(t, ft.cmds[0])
	assert.Equal(t, uint8(0x01), p.LEScanType, "active scan")
	assert.Equal(t, uint16(0x0010), p.LEScanInterval)
	assert.Equal(t, uint16(0x0010), p.LEScanWindow)
	assert.Equal(t, uint8(0x01), p.OwnAddressType, "random address for active scans")

	e := scanEnables(t, ft.cmds[1])
	assert.Equal(t, uint8(1), e.LEScanEnable)
	assert.Equal(t, uint8(1), e.FilterDuplicates)

	require.Len(t, ft.filters, 1)
	assert.Equal(t, []uint8{0x04}, ft.filters[0].PacketTypes)
	assert.Equal(t, []uint8{0x3E}, ft.filters[0].Events)
	assert.Equal(t, hci.Enabled, s.State())
}

func TestSetScanning_AddressTypeOptions(t *testing.T) {
	tests := []struct {
		name     string
		opt      hci.ScanOptions
		scanType uint8
		ownAddr  uint8
	}{
		{"active random", hci.ScanOptions{}, 0x01, 0x01},
		{"active public", hci.ScanOptions{PublicAddress: true}, 0x01, 0x00},
		{"passive is always public", hci.ScanOptions{Passive: true}, 0x00, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			require.NoError(t, hci.NewScanner(ft).SetScanning(true, tt.opt))
			p := scanParameters(t, ft.cmds[0])
			assert.Equal(t, tt.scanType, p.LEScanType)
			assert.Equal(t, tt.ownAddr, p.OwnAddressType)
		})
	}
}

func TestSetScanning_Disable(t *testing.T) {
	ft := &fakeTransport{}
	s := hci.NewScanner(ft)

	require.NoError(t, s.SetScanning(false, hci.ScanOptions{}))
	require.Len(t, ft.cmds, 1)
	e := scanEnables(t, ft.cmds[0])
	assert.Equal(t, uint8(0), e.LEScanEnable)
	assert.Empty(t, ft.filters)
	assert.Equal(t, hci.Disabled, s.State())
}

func TestSetScanning_DisableFailureSurfaced(t *testing.T) {
	ft := &fakeTransport{statuses: []byte{0x03}}
	s := hci.NewScanner(ft)

	err := s.SetScanning(false, hci.ScanOptions{})
	assert.Equal(t, hci.ErrHardware, errors.Cause(err))
	assert.Equal(t, hci.Disabled, s.State())
}

func TestSetScanning_BusyRetriesOnce(t *testing.T) {
	// Parameter set rejected mid-scan, then the disable+retry succeeds.
	ft := &fakeTransport{statuses: []byte{0x0C, 0x00, 0x00, 0x00}}
	s := hci.NewScanner(ft)

	require.NoError(t, s.SetScanning(true, hci.ScanOptions{}))
	require.Len(t, ft.cmds, 4)
	scanParameters(t, ft.cmds[0])
	assert.Equal(t, uint8(0), scanEnables(t, ft.cmds[1]).LEScanEnable)
	scanParameters(t, ft.cmds[2])
	assert.Equal(t, uint8(1), scanEnables(t, ft.cmds[3]).LEScanEnable)
	assert.Equal(t, hci.Enabled, s.State())
}

func TestSetScanning_BusyRetryFailsWithoutThirdAttempt(t *testing.T) {
	ft := &fakeTransport{statuses: []byte{0x0C, 0x00, 0x3A}}
	s := hci.NewScanner(ft)

	err := s.SetScanning(true, hci.ScanOptions{})
	require.Error(t, err)
	assert.Len(t, ft.cmds, 3, "no third parameter attempt")
	cmdErr, ok := errors.Cause(err).(hci.ErrCommand)
	require.True(t, ok)
	assert.True(t, cmdErr.Busy())
	assert.Equal(t, hci.Disabled, s.State())
}

func TestSetScanning_NonBusyFailureIsNotRetried(t *testing.T) {
	ft := &fakeTransport{statuses: []byte{0x12}}
	s := hci.NewScanner(ft)

	err := s.SetScanning(true, hci.ScanOptions{})
	assert.Equal(t, hci.ErrInvalidParams, errors.Cause(err))
	assert.Len(t, ft.cmds, 1)
	assert.Equal(t, hci.Disabled, s.State())
}

func TestSetScanning_EnableTailFailure(t *testing.T) {
	ft := &fakeTransport{statuses: []byte{0x00, 0x0C}}
	s := hci.NewScanner(ft)

	err := s.SetScanning(true, hci.ScanOptions{})
	require.Error(t, err)
	assert.NotEqual(t, hci.Enabled, s.State(), "any enable-path error means not enabled")
}

func TestSetScanning_FilterFailure(t *testing.T) {
	ft := &fakeTransport{filterErr: errors.New("setsockopt: EINVAL")}
	s := hci.NewScanner(ft)

	err := s.SetScanning(true, hci.ScanOptions{})
	require.Error(t, err)
	assert.NotEqual(t, hci.Enabled, s.State())
}

func TestSetScanning_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("transport gone")
	ft := &fakeTransport{errs: []error{boom}}
	s := hci.NewScanner(ft)

	err := s.SetScanning(true, hci.ScanOptions{})
	assert.Equal(t, boom, errors.Cause(err))
	assert.Len(t, ft.cmds, 1, "opaque transport errors are not retried")
}

func TestReadAdvertisement(t *testing.T) {
	frame := advFrame([6]byte{1, 2, 3, 4, 5, 6}, []byte{0x02, 0x01, 0x06, 0x00}, -60)
	other := []byte{0x04, 0x3E, 0x04, 0x01, 0x00, 0x00, 0x00}
	ft := &fakeTransport{events: [][]byte{other, frame}}
	s := hci.NewScanner(ft)

	// A skipped frame must not poison the next read.
	_, err := s.ReadAdvertisement()
	assert.ErrorIs(t, err, hci.ErrNotAdvertisement)

	r, err := s.ReadAdvertisement()
	require.NoError(t, err)
	assert.Equal(t, int8(-60), r.RSSI)
}

func TestReadAdvertisement_TransportError(t *testing.T) {
	boom := errors.New("read failed")
	ft := &fakeTransport{readErr: boom}
	_, err := hci.NewScanner(ft).ReadAdvertisement()
	assert.Equal(t, boom, errors.Cause(err))
}
