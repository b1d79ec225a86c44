// Package mdns advertises the bridge HTTP API on the LAN via DNS-SD so
// dashboards can find it without configuration.
package mdns

import (
	"errors"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the DNS-SD service type of the API.
	ServiceType = "_http._tcp"

	domain = "local."
)

// ErrInvalidAdvertisement is returned for an empty instance name or a port
// outside 1..65535.
var ErrInvalidAdvertisement = errors.New("mdns: invalid advertisement")

// Logger is the subset of logging.Logger used here.
type Logger interface {
	Info(msg string, args ...any)
}

// Advertisement describes what gets announced.
type Advertisement struct {
	Instance string
	Port     int
	BridgeID string
	Version  string
	// WSPath is the WebSocket path published in the TXT record.
	WSPath string
}

// TXT returns the TXT records for the advertisement.
func (a Advertisement) TXT() []string {
	txt := []string{
		"bridge_id=" + a.BridgeID,
		"version=" + a.Version,
	}
	if a.WSPath != "" {
		txt = append(txt, "ws_path="+a.WSPath)
	}
	return txt
}

func (a Advertisement) validate() error {
	if a.Instance == "" {
		return fmt.Errorf("%w: instance name is required", ErrInvalidAdvertisement)
	}
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidAdvertisement, a.Port)
	}
	return nil
}

// Advertiser holds a live mDNS registration.
type Advertiser struct {
	server   *zeroconf.Server
	ad       Advertisement
	logger   Logger
	stopOnce sync.Once
}

// Register announces ad on all interfaces until Shutdown is called.
func Register(ad Advertisement, logger Logger) (*Advertiser, error) {
	if err := ad.validate(); err != nil {
		return nil, err
	}

	server, err := zeroconf.Register(ad.Instance, ServiceType, domain, ad.Port, ad.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	if logger != nil {
		logger.Info("mDNS service registered", "instance", ad.Instance, "port", ad.Port, "txt", ad.TXT())
	}
	return &Advertiser{server: server, ad: ad, logger: logger}, nil
}

// Shutdown withdraws the registration. Safe to call more than once.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.stopOnce.Do(func() {
		a.server.Shutdown()
		if a.logger != nil {
			a.logger.Info("mDNS service unregistered", "instance", a.ad.Instance)
		}
	})
}
