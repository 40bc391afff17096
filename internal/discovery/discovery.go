// Package discovery finds Cast receivers on the LAN via mDNS/DNS-SD,
// browsing the standard _googlecast._tcp service.
package discovery

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/sebas/castbridge/internal/castsession"
)

const castService = "_googlecast._tcp"

// Discover browses for Cast receivers for the given timeout and returns
// every responder found. Entries without an IPv4 address are skipped: the
// rest of the core is tcp4-only.
func Discover(timeout time.Duration) ([]castsession.Device, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	devices := make([]castsession.Device, 0, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			ip := entry.AddrV4.String()
			devices = append(devices, castsession.Device{
				ID:           castsession.DeviceID(ip, entry.Port),
				FriendlyName: friendlyNameFromTXT(entry.InfoFields, entry.Name),
				Model:        modelFromTXT(entry.InfoFields),
				IP:           ip,
				Port:         entry.Port,
				Available:    true,
			})
		}
	}()

	params := &mdns.QueryParam{
		Service: castService,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}

	if err := mdns.Query(params); err != nil {
		close(entries)
		<-done
		return nil, fmt.Errorf("discovery: mdns query: %w", err)
	}
	close(entries)
	<-done

	slog.Info("discovery: scan complete", "found", len(devices))
	return devices, nil
}

// friendlyNameFromTXT reads the "fn=" TXT field Cast receivers publish;
// falls back to the raw mDNS instance name.
func friendlyNameFromTXT(fields []string, fallback string) string {
	if v, ok := txtField(fields, "fn"); ok {
		return v
	}
	return fallback
}

// modelFromTXT reads the "md=" TXT field.
func modelFromTXT(fields []string) string {
	v, _ := txtField(fields, "md")
	return v
}

func txtField(fields []string, key string) (string, bool) {
	prefix := key + "="
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimPrefix(f, prefix), true
		}
	}
	return "", false
}
