//go:build linux

// blescan enables LE scanning on a local adapter and prints every
// advertising report it receives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/hci"
	"github.com/maribu/ble-adv/hci/socket"
	"github.com/maribu/ble-adv/sensor"
)

var logger = log.New("blescan")

func main() {
	app := cli.NewApp()

	app.Name = "blescan"
	app.Usage = "Print BLE advertising reports from a local adapter"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "device, i", Value: -1, Usage: "HCI device id (-1 picks the first usable one)"},
		cli.BoolFlag{Name: "passive, p", Usage: "passive scan (no scan requests)"},
		cli.BoolFlag{Name: "dup", Usage: "report duplicate advertisements"},
		cli.BoolFlag{Name: "public", Usage: "scan with the public device address"},
	}
	app.Action = scan

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("exit", "err", err)
	}
}

func scan(c *cli.Context) error {
	t, err := socket.New(c.Int("device"))
	if err != nil {
		return errors.Wrap(err, "can't open device")
	}
	defer t.Close()

	s := hci.NewScanner(t)
	opt := hci.ScanOptions{
		Passive:          c.Bool("passive"),
		FilterDuplicates: !c.Bool("dup"),
		PublicAddress:    c.Bool("public"),
	}
	if err := s.SetScanning(true, opt); err != nil {
		return errors.Wrap(err, "can't enable scanning")
	}
	defer func() {
		if err := s.SetScanning(false, opt); err != nil {
			logger.Warn("can't disable scanning", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	return loop(s, sig)
}

// loop prints reports until a signal arrives or the transport fails. Scan
// teardown belongs to the caller, so the control path is never touched from
// more than one goroutine.
func loop(s *hci.Scanner, sig <-chan os.Signal) error {
	for {
		select {
		case <-sig:
			logger.Info("stopping")
			return nil
		default:
		}
		r, err := s.ReadAdvertisement()
		switch errors.Cause(err) {
		case nil:
			show(r)
		case hci.ErrNotAdvertisement:
		case hci.ErrTruncatedEvent, adv.ErrMalformed, adv.ErrOverflow:
			logger.Debug("dropped report", "err", err)
		default:
			return errors.Wrap(err, "read advertisement")
		}
	}
}

func show(r *adv.Record) {
	name := r.Name
	if !r.NameKnown() {
		name = hci.UnknownName
	}
	fmt.Printf("[%s] %s RSSI %d", r.Addr, name, r.RSSI)
	if r.TxPower != adv.TxPowerUnset {
		fmt.Printf(" TX %d", r.TxPower)
	}
	fmt.Println()

	if r.Has&adv.HasFlags != 0 {
		fmt.Printf("  flags: %s\n", flagNames(r.Flags))
	}
	if r.Has&adv.HasUUID16 != 0 {
		fmt.Printf("  uuid16: 0x%04X\n", r.UUID16)
	}
	if r.Has&adv.HasUUID32 != 0 {
		fmt.Printf("  uuid32: 0x%08X\n", r.UUID32)
	}
	if r.Has&adv.HasUUID128 != 0 {
		fmt.Printf("  uuid128: %X\n", r.UUID128)
	}
	if r.Has&adv.HasURI != 0 {
		fmt.Printf("  uri: %s\n", r.URI)
	}
	if r.Has&adv.HasServiceData != 0 {
		fmt.Printf("  service 0x%04X: %X\n", r.ServiceUUID, r.ServiceData)
	}
	if r.Has&adv.HasManufacturerData != 0 {
		fmt.Printf("  vendor 0x%04X: %X\n", r.ManufacturerID, r.ManufacturerData)
	}
	if t, ok := sensor.Match(r); ok {
		fmt.Printf("  telemetry: %.1f C, %d %%RH, battery %d %% (%d mV), frame %d\n",
			t.Celsius(), t.Humidity, t.Battery, t.BatteryMV, t.FrameCounter)
	}
}

func flagNames(f byte) string {
	var n []string
	if f&adv.FlagLimitedDiscoverable != 0 {
		n = append(n, "limited-discoverable")
	}
	if f&adv.FlagGeneralDiscoverable != 0 {
		n = append(n, "general-discoverable")
	}
	if f&adv.FlagLEOnly != 0 {
		n = append(n, "le-only")
	}
	if f&adv.FlagBothController != 0 {
		n = append(n, "dual-mode-controller")
	}
	if f&adv.FlagBothHost != 0 {
		n = append(n, "dual-mode-host")
	}
	if len(n) == 0 {
		return fmt.Sprintf("0x%02X", f)
	}
	return strings.Join(n, " ")
}
