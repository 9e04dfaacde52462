package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"docflow/internal/conflict"
	"docflow/internal/daemon"
	"docflow/internal/logging"
)

const serviceName = "Docflow"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path     string
	logger   *slog.Logger
	listener net.Listener
	rpc      *rpc.Server

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer replaces any stale socket at path and registers the daemon's
// RPC methods. Calls run under ctx.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: ctx}); err != nil {
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	return &Server{
		path:     path,
		logger:   logger,
		listener: listener,
		rpc:      rpcServer,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "CLI commands may fail to reach the daemon"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			if !s.track(conn) {
				_ = conn.Close()
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.untrack(conn)
				s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
			}()
		}
	}()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Close stops accepting, drops open client connections and removes the
// socket file.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	_ = s.listener.Close()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "a stale socket may block the next start"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun docflow stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status, err := s.daemon.DaemonStatus(s.ctx)
	if err != nil {
		return err
	}
	*resp = status
	return nil
}

func (s *service) QueueStatus(_ QueueStatusRequest, resp *QueueStatusResponse) error {
	stats, err := s.daemon.QueueStats()
	if err != nil {
		return err
	}
	snap, err := s.daemon.QueueSnapshot()
	if err != nil {
		return err
	}
	resp.Stats = stats
	resp.Snapshot = snap
	return nil
}

func (s *service) QueuePause(_ QueuePauseRequest, resp *QueueStateResponse) error {
	if err := s.daemon.PauseQueue(); err != nil {
		return err
	}
	resp.Paused = true
	return nil
}

func (s *service) QueueResume(_ QueueResumeRequest, resp *QueueStateResponse) error {
	if err := s.daemon.ResumeQueue(); err != nil {
		return err
	}
	resp.Paused = false
	return nil
}

func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) error {
	s.logger.Debug("queue clear requested")
	removed, err := s.daemon.ClearQueue()
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int("removed_count", removed))
	return nil
}

func (s *service) AddFile(req AddFileRequest, resp *AddFileResponse) error {
	result, err := s.daemon.AddFile(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) ImportsList(req ImportsListRequest, resp *ImportsListResponse) error {
	items, err := s.daemon.Review().ListImports(s.ctx, req.Query)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) ConflictsList(req ConflictsListRequest, resp *ConflictsListResponse) error {
	items, err := s.daemon.Review().ListConflicts(s.ctx, req.Query)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) ConflictsCount(req ConflictsCountRequest, resp *ConflictsCountResponse) error {
	count, err := s.daemon.Review().CountConflicts(s.ctx, req.UserID)
	if err != nil {
		return err
	}
	resp.Count = count
	return nil
}

func (s *service) ConflictDescribe(req ConflictDescribeRequest, resp *ConflictDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid conflict id %d", req.ID)
	}
	item, err := s.daemon.Review().DescribeConflict(s.ctx, req.ID)
	if errors.Is(err, conflict.ErrNotFound) || (err == nil && item == nil) {
		resp.Found = false
		return nil
	}
	if err != nil {
		return err
	}
	resp.Found = true
	resp.Item = *item
	return nil
}

func (s *service) ConflictsResolve(req ConflictsResolveRequest, resp *ConflictsResolveResponse) error {
	if len(req.Request.IDs) == 0 {
		return errors.New("conflict resolve requires at least one id")
	}
	result, err := s.daemon.Review().ResolveConflicts(s.ctx, req.Request)
	if err != nil {
		return err
	}
	resp.Result = result
	s.logger.Info("conflicts resolved via IPC",
		logging.String(logging.FieldEventType, "conflicts_resolve"),
		logging.Int64("updated_count", result.UpdatedCount),
		logging.Int64("resolved_by", req.Request.UserID))
	return nil
}

func (s *service) AuthorsSet(req AuthorsSetRequest, resp *AuthorsSetResponse) error {
	if err := s.daemon.SetAuthor(s.ctx, req.Name, req.UserID); err != nil {
		return err
	}
	resp.Updated = true
	return nil
}

func (s *service) AuthorsList(_ AuthorsListRequest, resp *AuthorsListResponse) error {
	items, err := s.daemon.ListAuthors(s.ctx)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	*resp = health
	if err != nil && health.Error == "" {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
