// Package nats hosts the in-process event bus between the loop and its
// observers: an embedded NATS server with a memory-backed JetStream stream.
package nats

import (
	"errors"
	"time"

	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS starts a NATS server that accepts in-process connections
// only. storeDir is required by JetStream even though the event stream
// itself lives in memory.
func StartEmbeddedNATS(storeDir string) (*server.Server, error) {
	logger.Debug("Starting embedded NATS server (store dir %s)", storeDir)

	ns, err := server.NewServer(&server.Options{
		JetStream:  true,
		StoreDir:   storeDir,
		DontListen: true,
		NoSigs:     true,
		NoLog:      true,
	})
	if err != nil {
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}

	logger.Debug("NATS server ready")
	return ns, nil
}

// ConnectInProcess opens a connection to ns without a network socket.
func ConnectInProcess(ns *server.Server) (*nats.Conn, error) {
	return nats.Connect("", nats.InProcessServer(ns))
}

// CreateJetStream returns a JetStream context for nc. Failed async
// publishes are logged, since nobody waits on their acks.
func CreateJetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc,
		jetstream.WithPublishAsyncErrHandler(func(_ jetstream.JetStream, msg *nats.Msg, err error) {
			logger.Warn("Async publish to %s failed: %v", msg.Subject, err)
		}),
	)
}

// Shutdown drains nc and stops ns, bounding both steps so a wedged
// subscriber cannot hold up process exit.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drained := make(chan error, 1)
		go func() { drained <- nc.Drain() }()

		select {
		case err := <-drained:
			if err != nil {
				logger.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			logger.Warn("NATS drain timed out after 2s, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		stopped := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			return errors.New("NATS server shutdown timed out")
		}
	}

	logger.Debug("NATS shutdown complete")
	return nil
}
