package nats

import (
	"errors"
	"time"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// readyTimeout bounds how long StartEmbedded waits for the server.
const readyTimeout = 4 * time.Second

// StartEmbedded starts an in-process NATS server with JetStream enabled.
// storeDir is required by JetStream even though the snapshot stream lives in
// memory; callers pass a temporary directory.
func StartEmbedded(storeDir string) (*server.Server, error) {
	logger.Debug("nats: starting embedded server (store %s)", storeDir)

	ns, err := server.NewServer(&server.Options{
		JetStream:  true,
		StoreDir:   storeDir,
		DontListen: true,
		NoSigs:     true,
	})
	if err != nil {
		logger.Error("nats: failed to create server: %v", err)
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		logger.Error("nats: server not ready within %s", readyTimeout)
		return nil, errors.New("nats server failed to start within timeout")
	}

	logger.Debug("nats: server ready")
	return ns, nil
}

// ConnectInProcess opens a connection that talks to ns without a socket.
func ConnectInProcess(ns *server.Server) (*nats.Conn, error) {
	conn, err := nats.Connect("", nats.InProcessServer(ns), nats.Name("agriwizard"))
	if err != nil {
		logger.Error("nats: in-process connect failed: %v", err)
		return nil, err
	}
	return conn, nil
}

// CreateJetStream creates a JetStream context from a NATS connection.
func CreateJetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc)
}

// Shutdown drains nc and stops ns. Either may be nil.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- nc.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				logger.Warn("nats: drain failed, closing: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			logger.Warn("nats: drain timed out after 2s, closing")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		shutdownDone := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
		case <-time.After(5 * time.Second):
			logger.Error("nats: server shutdown timed out after 5s")
			return errors.New("nats server shutdown timed out")
		}
	}

	logger.Debug("nats: shutdown complete")
	return nil
}
