// Command castbridge bridges a local media player to a Google Cast
// receiver: it discovers (or connects directly to) a receiver, drives the
// Cast session machine, and serves audio over its own HTTP range server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/castbridge/internal/banner"
	"github.com/sebas/castbridge/internal/castsession"
	"github.com/sebas/castbridge/internal/config"
	"github.com/sebas/castbridge/internal/discovery"
	"github.com/sebas/castbridge/internal/hostplayer"
	"github.com/sebas/castbridge/internal/logger"
	"github.com/sebas/castbridge/internal/mediaserver"
	"github.com/sebas/castbridge/internal/outputadapter"
	"github.com/sebas/castbridge/internal/transcoder"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	banner.Print("castbridge", []banner.ConfigLine{
		{Label: "Log level", Value: cfg.LogLevel},
		{Label: "Media server port", Value: fmt.Sprintf("%d", cfg.MediaServerPort)},
		{Label: "Discovery timeout", Value: cfg.DiscoveryTimeout.String()},
		{Label: "Max transcodes", Value: fmt.Sprintf("%d", cfg.MaxConcurrentTranscodes)},
	})

	device, err := resolveDevice(cfg)
	if err != nil {
		logger.Error("castbridge: no receiver available", "error", err)
		os.Exit(1)
	}

	media := mediaserver.NewServer(cfg.AdvertiseIP)
	if _, err := media.Start(cfg.MediaServerPort); err != nil {
		logger.Error("castbridge: media server failed to start", "error", err)
		os.Exit(1)
	}
	defer media.Stop()

	tc := transcoder.NewTranscoder(cfg.MaxConcurrentTranscodes)

	session := castsession.NewSession()
	defer session.Close()

	session.OnConnectionState(func(s castsession.ConnectionState) {
		logger.Info("castbridge: connection state", "state", s.String())
	})
	session.OnPlaybackState(func(s castsession.PlaybackState) {
		logger.Info("castbridge: playback state", "state", s.String())
	})
	session.OnError(func(err error) {
		logger.Error("castbridge: session error", "error", err)
	})

	adapter := outputadapter.NewAdapter(session, media, tc, cfg.ScratchDir)

	source := hostplayer.NewStubSource()
	wireHostPlayer(source, adapter)

	session.ConnectTo(device)
	logger.Info("castbridge: connecting", "device", device.ID, "name", device.FriendlyName)

	waitForShutdown()
	session.Disconnect()
}

// resolveDevice connects directly to a configured device, or falls back to
// an mDNS browse and picks the first receiver found.
func resolveDevice(cfg *config.Config) (castsession.Device, error) {
	if cfg.DeviceIP != "" {
		return castsession.Device{
			ID:        castsession.DeviceID(cfg.DeviceIP, cfg.DevicePort),
			IP:        cfg.DeviceIP,
			Port:      cfg.DevicePort,
			Available: true,
		}, nil
	}

	devices, err := discovery.Discover(cfg.DiscoveryTimeout)
	if err != nil {
		return castsession.Device{}, fmt.Errorf("castbridge: discovery: %w", err)
	}
	if len(devices) == 0 {
		return castsession.Device{}, fmt.Errorf("castbridge: no Cast receivers found on the LAN")
	}
	return devices[0], nil
}

// wireHostPlayer connects the host event source's callbacks to the
// adapter's event handlers.
func wireHostPlayer(source hostplayer.Source, adapter *outputadapter.Adapter) {
	source.OnTrackStarted(func(path, title, artist, album, coverURL string) {
		if err := adapter.OnTrackStarted(outputadapter.TrackStarted{
			Path: path, Title: title, Artist: artist, Album: album, CoverURL: coverURL,
		}); err != nil {
			logger.Error("castbridge: track load failed", "path", path, "error", err)
		}
	})
	source.OnPlayState(func(state string) {
		switch state {
		case "Playing":
			adapter.OnPlayState(outputadapter.Playing)
		case "Paused":
			adapter.OnPlayState(outputadapter.Paused)
		case "Stopped":
			adapter.OnPlayState(outputadapter.Stopped)
		default:
			logger.Warn("castbridge: unknown play-state from host player", "state", state)
		}
	})
	source.OnVolume(func(level float64) {
		adapter.OnVolume(outputadapter.Volume{Level: level})
	})
	source.OnSeek(func(positionMS int64) {
		adapter.OnSeek(outputadapter.Seek{PositionMS: positionMS})
	})
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
