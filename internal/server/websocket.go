package server

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/tasks"
)

// handleConnection serves one client until it disconnects. Watches started
// on the connection end with it; the downloads they follow do not.
func (s *Server) handleConnection(_ context.Context, conn *protocol.Conn) {
	remoteAddr := conn.RemoteAddr()

	s.wg.Add(1)
	defer s.wg.Done()
	s.track(conn)
	logging.LogConnection(remoteAddr, "websocket_upgraded")

	// Not the request context: it is not tied to the hijacked connection.
	ctx, cancel := context.WithCancel(context.Background())
	var watches sync.WaitGroup

	defer func() {
		cancel()
		watches.Wait()
		_ = conn.Close()
		s.untrack(conn)
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	for {
		msg, err := conn.Receive()
		if errors.Is(err, protocol.ErrInvalidMessage) {
			id := ""
			if msg != nil {
				id = msg.ID
			}
			s.reply(conn, protocol.ErrorReply(id, protocol.CodeBadRequest, err))
			continue
		}
		if err != nil {
			if !protocol.IsClosed(err) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		s.dispatch(ctx, conn, msg, &watches)
	}
}

func (s *Server) dispatch(ctx context.Context, conn *protocol.Conn, msg *protocol.Message, watches *sync.WaitGroup) {
	switch msg.Type {
	case protocol.TypeSlots:
		slots, err := s.engine.Slots(ctx)
		if err != nil {
			s.reply(conn, protocol.ErrorReply(msg.ID, errorCode(err), err))
			return
		}
		s.reply(conn, protocol.SlotsReply(msg.ID, slots))

	case protocol.TypeDownload:
		id, err := s.engine.StartDownload(ctx, msg.Download.Request())
		if err != nil {
			s.reply(conn, protocol.ErrorReply(msg.ID, errorCode(err), err))
			return
		}
		s.reply(conn, protocol.TaskReply(msg.ID, id))

	case protocol.TypeWatch:
		events, err := s.engine.Watch(ctx, lpa.TaskID(msg.TaskID))
		if err != nil {
			s.reply(conn, protocol.ErrorReply(msg.ID, errorCode(err), err))
			return
		}
		watches.Add(1)
		go func() {
			defer watches.Done()
			for p := range events {
				if !s.reply(conn, protocol.ProgressReply(msg.ID, p)) {
					return
				}
			}
		}()

	default:
		s.reply(conn, protocol.ErrorReply(msg.ID, protocol.CodeBadRequest,
			errors.New("not a request: "+string(msg.Type))))
	}
}

func (s *Server) reply(conn *protocol.Conn, msg protocol.Message) bool {
	if err := conn.Send(msg); err != nil {
		logging.Warn("Failed to send reply",
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, tasks.ErrUnknownTask):
		return protocol.CodeUnknownTask
	case errors.Is(err, tasks.ErrSlotBusy):
		return protocol.CodeSlotBusy
	case errors.Is(err, tasks.ErrInvalidRequest):
		return protocol.CodeBadRequest
	default:
		return protocol.CodeInternal
	}
}
