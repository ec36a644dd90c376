// Package broker is the TCP transport of the file broker. It accepts
// connections, reads framed requests, runs each one through the command
// dispatcher on its own goroutine and writes exactly one framed response
// back to the requesting connection.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/handlers"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/metrics"
)

// ErrUnknownConnection is returned by SendResponse when no live connection
// has the given address.
var ErrUnknownConnection = errors.New("no connection with that address")

// ResponseSender delivers an encapsulated response to the connection with
// remote address addr. It reports only whether the bytes were written; it
// must not retry and must not take ownership of buf.
type ResponseSender interface {
	SendResponse(addr string, buf *wire.CommBuf) error
}

// Server accepts broker connections and serves requests on them.
//
// All exported methods are safe for concurrent use. Stop may be called
// any number of times.
type Server struct {
	config  Config
	handler *handlers.Handler

	// metrics is nil when collection is disabled.
	metrics metrics.BrokerMetrics

	// sender delivers responses. It defaults to the server itself.
	sender ResponseSender

	listener   net.Listener
	listenerMu sync.RWMutex

	// ready is closed once the listener is bound.
	ready chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// requestCtx is the parent of every request context. It is cancelled
	// only after the drain timeout, never on the shutdown signal itself.
	requestCtx     context.Context
	cancelRequests context.CancelFunc

	activeConns   sync.WaitGroup
	connCount     atomic.Int32
	connSemaphore chan struct{}
	conns         sync.Map // remote addr -> *connection
}

// New returns a stopped server. Zero config values get defaults; an
// invalid configuration is a programming error and panics.
func New(cfg Config, h *handlers.Handler, m metrics.BrokerMetrics) *Server {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid broker config: %v", err))
	}
	if h.MaxIOSize == 0 && cfg.MaxIOSize > 0 {
		h.MaxIOSize = int32(cfg.MaxIOSize)
	}

	var sem chan struct{}
	if cfg.MaxConnections > 0 {
		sem = make(chan struct{}, cfg.MaxConnections)
	}

	requestCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		handler:        h,
		metrics:        m,
		ready:          make(chan struct{}),
		shutdown:       make(chan struct{}),
		requestCtx:     requestCtx,
		cancelRequests: cancel,
		connSemaphore:  sem,
	}
	s.sender = s
	return s
}

// SetSender replaces the response sender. Must be called before Serve.
func (s *Server) SetSender(sender ResponseSender) {
	s.sender = sender
}

// Handler returns the command handler the server dispatches to.
func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

// Serve listens and accepts connections until ctx is cancelled or Stop is
// called. It returns nil after a graceful drain and an error if the
// listener cannot be created or connections had to be force-closed.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.listenAddr())
	if err != nil {
		return fmt.Errorf("failed to create broker listener on %s: %w", s.config.listenAddr(), err)
	}

	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.ready)

	logger.Info("Broker listening", "address", ln.Addr().String(), "backend", s.handler.FS.Name())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Broker shutdown signal received", "error", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics()
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := ln.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting broker connection", logger.Err(err))
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		s.track(tcpConn)
	}
}

func (s *Server) track(tcpConn net.Conn) {
	c := newConnection(s, tcpConn)

	s.activeConns.Add(1)
	active := s.connCount.Add(1)
	s.conns.Store(c.addr, c)

	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(active)
	}
	logger.Debug("Broker connection accepted",
		logger.ClientAddr(c.addr),
		logger.ConnectionID(c.id),
		"active", active)

	go func() {
		defer func() {
			s.conns.Delete(c.addr)
			s.activeConns.Done()
			active := s.connCount.Add(-1)
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			if s.metrics != nil {
				s.metrics.RecordConnectionClosed()
				s.metrics.SetActiveConnections(active)
				s.metrics.SetOpenHandles(s.handler.Table.Len())
			}
			logger.Debug("Broker connection closed",
				logger.ClientAddr(c.addr),
				logger.ConnectionID(c.id),
				"active", active)
		}()

		c.serve()
	}()
}

// SendResponse writes buf to the live connection with address addr.
func (s *Server) SendResponse(addr string, buf *wire.CommBuf) error {
	v, ok := s.conns.Load(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, addr)
	}
	return v.(*connection).write(buf)
}

// initiateShutdown stops accepting, wakes connections blocked in reads and
// lets in-flight requests finish.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Broker shutdown initiated")
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing broker listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
	})
}

// interruptBlockingReads sets an immediate read deadline on every
// connection so read loops notice the shutdown.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.conns.Range(func(key, value any) bool {
		if err := value.(*connection).conn.SetReadDeadline(deadline); err != nil {
			logger.Debug("Error setting shutdown deadline", "address", key, logger.Err(err))
		}
		return true
	})
}

// gracefulShutdown waits for connections to drain for Timeouts.Shutdown,
// then cancels requests and force-closes what is left.
func (s *Server) gracefulShutdown() error {
	logger.Info("Broker graceful shutdown: waiting for active connections",
		"active", s.connCount.Load(),
		"timeout", s.config.Timeouts.Shutdown)

	select {
	case <-s.drained():
		s.cancelRequests()
		logger.Info("Broker graceful shutdown complete")
		return nil

	case <-time.After(s.config.Timeouts.Shutdown):
		remaining := s.connCount.Load()
		logger.Warn("Broker shutdown timeout exceeded, forcing closure",
			"active", remaining,
			"timeout", s.config.Timeouts.Shutdown)
		s.cancelRequests()
		s.forceCloseConnections()
		return fmt.Errorf("broker shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *Server) drained() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()
	return done
}

func (s *Server) forceCloseConnections() {
	closed := 0
	s.conns.Range(func(key, value any) bool {
		if err := value.(*connection).conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", key, logger.Err(err))
			return true
		}
		closed++
		if s.metrics != nil {
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed broker connections", "count", closed)
	}
}

// Stop initiates shutdown and waits until every connection is gone or ctx
// is done.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	select {
	case <-s.drained():
		return nil
	case <-ctx.Done():
		logger.Warn("Broker stop context done before connections drained",
			"active", s.connCount.Load(),
			logger.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Server) logMetrics() {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("Broker metrics",
				"active_connections", s.connCount.Load(),
				"open_handles", s.handler.Table.Len())
		}
	}
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr() string {
	<-s.ready

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
