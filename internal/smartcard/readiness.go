package smartcard

import (
	"fmt"

	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
)

// AccessProtocol names the chip access mechanism a probe settled on.
type AccessProtocol string

const (
	ProtocolPACE AccessProtocol = "pace"
	ProtocolBAC  AccessProtocol = "bac"
	ProtocolNone AccessProtocol = "none"
)

// Readiness is the pre-read diagnostic report devices print before
// attempting authentication.
type Readiness struct {
	MRZComplete   bool           `json:"mrzComplete"`
	ChipReachable bool           `json:"chipReachable"`
	Protocol      AccessProtocol `json:"protocol"`
	Detail        string         `json:"detail,omitempty"`
}

// Ready reports whether a read attempt can proceed.
func (r *Readiness) Ready() bool {
	return r.MRZComplete && r.ChipReachable && r.Protocol != ProtocolNone
}

// String renders the three-line report devices log.
func (r *Readiness) String() string {
	return fmt.Sprintf("MRZ Fields Complete: %t\nChip Reachable: %t\nAccess Protocol Ready: %t (%s)",
		r.MRZComplete, r.ChipReachable, r.Protocol != ProtocolNone, r.Protocol)
}

// Probe checks whether a read can start: the MRZ must carry the fields the
// access keys derive from, and the chip must answer a SELECT of the eMRTD
// applet. PACE is preferred when EF.CardAccess is selectable, otherwise the
// probe falls back to BAC.
func Probe(zone *mrz.MRZ, dev Device) *Readiness {
	r := &Readiness{Protocol: ProtocolNone}

	if zone != nil && zone.DocumentNumber != "" && zone.BirthDate.Raw != "" && zone.ExpiryDate.Raw != "" {
		r.MRZComplete = zone.Checks.DocumentNumber && zone.Checks.BirthDate && zone.Checks.ExpiryDate
		if !r.MRZComplete {
			r.Detail = "MRZ check digits failed; re-scan the document"
		}
	} else {
		r.Detail = "MRZ missing document number, birth date or expiry date"
	}

	if dev == nil {
		if r.Detail == "" {
			r.Detail = "no reader device"
		}
		return r
	}
	if hc, ok := dev.(DeviceHealthChecker); ok {
		if err := hc.IsHealthy(); err != nil {
			r.Detail = fmt.Sprintf("reader unhealthy: %v", err)
			return r
		}
	}

	resp, err := Exchange(dev, SelectApplet())
	if err != nil || !resp.OK() {
		if err != nil {
			r.Detail = fmt.Sprintf("chip select failed: %v", err)
		} else {
			r.Detail = "chip select failed: " + resp.StatusText()
		}
		return r
	}
	r.ChipReachable = true

	if resp, err := Exchange(dev, SelectCardAccess()); err == nil && resp.OK() {
		r.Protocol = ProtocolPACE
	} else {
		r.Protocol = ProtocolBAC
	}
	return r
}
