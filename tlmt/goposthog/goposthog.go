package goposthog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"runtime"

	"github.com/posthog/posthog-go"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/gosom/selfstorage-scraper/tlmt"
)

type service struct {
	client   posthog.Client
	identity identity
}

type identity struct {
	ID   string
	Meta map[string]any
}

func New(apiKey, endpoint string) (tlmt.Telemetry, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	return &service{
		client:   client,
		identity: machineIdentity(),
	}, nil
}

func (s *service) Send(ctx context.Context, event tlmt.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	props := posthog.NewProperties()

	for k, v := range s.identity.Meta {
		props.Set(k, v)
	}

	for k, v := range event.Properties {
		props.Set(k, v)
	}

	return s.client.Enqueue(posthog.Capture{
		DistinctId: s.identity.ID,
		Event:      event.Name,
		Properties: props,
	})
}

func (s *service) Close() error {
	return s.client.Close()
}

// machineIdentity hashes the host id so that runs from the same machine can
// be grouped without sending the id itself.
func machineIdentity() identity {
	meta := map[string]any{
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
		"num_cpu": runtime.NumCPU(),
		"go_ver":  runtime.Version(),
	}

	seed := runtime.GOOS + "/" + runtime.GOARCH

	if info, err := host.Info(); err == nil {
		seed = info.HostID
		meta["platform"] = info.Platform
		meta["platform_version"] = info.PlatformVersion
		meta["virtualization"] = info.VirtualizationSystem
	}

	sum := sha256.Sum256([]byte(seed))

	return identity{
		ID:   hex.EncodeToString(sum[:16]),
		Meta: meta,
	}
}
