// Package valkeytest runs a disposable Valkey container for repository tests.
package valkeytest

import (
	"context"
	"net"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"
)

const image = "valkey/valkey:8-alpine"

type Instance struct {
	Client valkey.Client
	// Addr is the host:port the container is reachable on.
	Addr string

	container *valkeycontainer.ValkeyContainer
}

// Start runs a Valkey container and connects a client to it. It panics when the container cannot be started.
func Start(ctx context.Context) *Instance {
	container, err := valkeycontainer.Run(ctx, image)
	if err != nil {
		slogctx.Error(ctx, "Failed to start Valkey container", "error", err)
		panic(err)
	}

	port, err := container.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		slogctx.Error(ctx, "Failed to map a port for the Valkey container", "error", err)
		panic(err)
	}

	addr := net.JoinHostPort("localhost", port.Port())

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		slogctx.Error(ctx, "Failed to initialise a Valkey client", "error", err)
		panic(err)
	}

	return &Instance{Client: client, Addr: addr, container: container}
}

// Keys lists the keys matching pattern.
func (i *Instance) Keys(ctx context.Context, pattern string) ([]string, error) {
	return i.Client.Do(ctx, i.Client.B().Keys().Pattern(pattern).Build()).AsStrSlice()
}

// Terminate closes the client and removes the container.
func (i *Instance) Terminate(ctx context.Context) {
	i.Client.Close()

	if err := i.container.Terminate(ctx); err != nil {
		slogctx.Error(ctx, "Failed to terminate Valkey container", "error", err)
		panic(err)
	}
}
