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
	"time"

	"hindsight/internal/daemon"
	"hindsight/internal/logging"
	"hindsight/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Hindsight", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun hindsight daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.RecorderState = string(status.Recorder.State)
	resp.SessionStartedAt = status.Recorder.SessionStartedAt
	resp.EncoderVersion = status.Recorder.EncoderVersion
	resp.ChunkCount = status.Recorder.ChunkCount
	resp.BufferedFrom = status.Recorder.BufferedFrom
	resp.BufferedUntil = status.Recorder.BufferedUntil
	resp.ConsecutiveFailures = status.Recorder.ConsecutiveFailures
	resp.Recordings = status.Recordings
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogPath
	resp.SocketPath = status.SocketPath
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func (s *service) StartRecording(_ StartRecordingRequest, resp *StartRecordingResponse) error {
	s.log().Debug("recording start requested")
	if err := s.daemon.StartRecording(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "recording started"
	s.log().Info("recording started via IPC",
		logging.String(logging.FieldEventType, "recording_start"))
	return nil
}

func (s *service) StopRecording(_ StopRecordingRequest, resp *StopRecordingResponse) error {
	s.log().Debug("recording stop requested")
	if err := s.daemon.StopRecording(s.ctx); err != nil {
		return err
	}
	resp.Stopped = true
	s.log().Info("recording stopped via IPC",
		logging.String(logging.FieldEventType, "recording_stop"))
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	if req.WindowSeconds < 0 {
		return fmt.Errorf("invalid export window %d", req.WindowSeconds)
	}
	s.log().Debug("export requested", logging.Int("window_seconds", req.WindowSeconds))
	rec, err := s.daemon.Export(s.ctx, time.Duration(req.WindowSeconds)*time.Second)
	if err != nil {
		return err
	}
	resp.Recording = fromCatalogRecording(rec)
	s.log().Info("replay exported via IPC",
		logging.String(logging.FieldEventType, "export"),
		logging.String("artifact", resp.Recording.Filename))
	return nil
}

func (s *service) Recordings(req RecordingsRequest, resp *RecordingsResponse) error {
	items, err := s.daemon.ListRecordings(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Recordings = make([]Recording, 0, len(items))
	for i := range items {
		resp.Recordings = append(resp.Recordings, fromCatalogRecording(&items[i]))
	}
	return nil
}

func (s *service) RemoveRecording(req RemoveRecordingRequest, resp *RemoveRecordingResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid recording id %d", req.ID)
	}
	rec, err := s.daemon.RemoveRecording(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = fromCatalogRecording(rec)
	return nil
}

func (s *service) TailLog(req TailLogRequest, resp *TailLogResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
