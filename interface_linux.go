//go:build linux

package tunping

import (
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"
	"github.com/songgao/water"

	"tunping/config"
)

// OpenInterface opens the TUN or TAP device described by cfg. TUN devices
// are opened without packet information, so every read is a bare datagram.
func OpenInterface(cfg config.Interface) (*water.Interface, error) {
	wcfg := water.Config{
		DeviceType: water.TUN,
	}
	if cfg.Mode == config.ModeTap {
		wcfg.DeviceType = water.TAP
	}
	wcfg.Name = cfg.Name
	wcfg.Persist = cfg.Persist

	ifce, err := water.New(wcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s device %s: %w", cfg.Mode, cfg.Name, err)
	}

	log.WithFields(log.Fields{
		"ifce": ifce.Name(),
		"mode": cfg.Mode,
	}).Debug("opened interface")

	if cfg.CIDR == "" {
		return ifce, nil
	}

	if err := bringUp(ifce.Name(), cfg.CIDR); err != nil {
		_ = ifce.Close()
		return nil, err
	}

	return ifce, nil
}

func bringUp(name, cidr string) error {
	err := exec.Command("ip", "addr", "add", cidr, "dev", name).Run()
	if err != nil {
		return fmt.Errorf("add address %s to %s: %w", cidr, name, err)
	}

	log.WithFields(log.Fields{
		"ifce": name,
		"cidr": cidr,
	}).Debug("added address to interface")

	err = exec.Command("ip", "link", "set", "dev", name, "up").Run()
	if err != nil {
		return fmt.Errorf("set %s up: %w", name, err)
	}

	log.WithField("ifce", name).Debug("interface set to up")

	return nil
}
