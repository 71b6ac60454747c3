package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/gorilla/websocket"

	"github.com/morenoc/imagemill/internal/hub"
	"github.com/morenoc/imagemill/internal/imageproc"
	"github.com/morenoc/imagemill/internal/orchestrator"
	"github.com/morenoc/imagemill/internal/protocol"
)

// welcome sends the initial status snapshot and a greeting log entry to a
// newly connected client only.
func (s *server) welcome(client *hub.Client) {
	s.sendStatus(client)

	status := s.orch.Status()
	msg, err := protocol.MarshalLog(
		fmt.Sprintf(
			"connected to imagemill (%d cores | imaging: %t | telemetry: %t)",
			status.CPUCount, status.Imaging, status.Telemetry,
		),
		protocol.LevelSuccess,
	)
	if err != nil {
		s.logger.Error("marshal welcome log", "err", err)
		return
	}

	client.Send(msg)
}

// readLoop decodes inbound command envelopes until the connection closes or
// errors. Malformed envelopes and unrecognized actions are silently ignored;
// they are never fatal to the connection.
func (s *server) readLoop(conn *websocket.Conn, client *hub.Client) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				s.logger.Debug("read message", "id", client.ID(), "err", err)
			}
			return
		}

		var cmd protocol.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Action {
		case protocol.ActionStart:
			s.handleStart(client, cmd.Data)

		case protocol.ActionStop:
			// Stop is only meaningful while a batch runs; anything else is
			// ignored, matching the lax handling of all inbound messages.
			if err := s.orch.Stop(); err != nil {
				s.logger.Debug("stop rejected", "id", client.ID(), "err", err)
			}

		case protocol.ActionGetStatus:
			s.sendStatus(client)

		case protocol.ActionPing:
			s.sendPong(client)

		default:
			s.logger.Debug("unknown action", "id", client.ID(), "action", cmd.Action)
		}
	}
}

// handleStart validates start parameters and hands them to the
// orchestrator. A rejected start (batch already in flight) produces exactly
// one warning log to the requester; shared state is untouched.
func (s *server) handleStart(client *hub.Client, data protocol.CommandData) {
	ops := make([]imageproc.Operation, 0, len(data.Operations))
	for _, spec := range data.Operations {
		op, err := imageproc.ParseOperation(spec.Type, spec.Width, spec.Height)
		if err != nil {
			s.logger.Debug("skipping operation", "id", client.ID(), "err", err)
			continue
		}
		ops = append(ops, op)
	}

	if len(ops) == 0 {
		ops = imageproc.DefaultOperations()
	}

	numWorkers := data.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	if err := s.orch.Start(ops, numWorkers); err != nil {
		if !errors.Is(err, orchestrator.ErrBatchInProgress) {
			s.logger.Error("start batch", "id", client.ID(), "err", err)
			return
		}

		msg, err := protocol.MarshalLog(
			"a batch is already in progress",
			protocol.LevelWarning,
		)
		if err != nil {
			s.logger.Error("marshal warning log", "err", err)
			return
		}

		client.Send(msg)
	}
}

func (s *server) sendStatus(client *hub.Client) {
	msg, err := protocol.Marshal(protocol.TypeStatus, s.orch.Status())
	if err != nil {
		s.logger.Error("marshal status", "err", err)
		return
	}

	client.Send(msg)
}

func (s *server) sendPong(client *hub.Client) {
	msg, err := protocol.MarshalPong()
	if err != nil {
		s.logger.Error("marshal pong", "err", err)
		return
	}

	client.Send(msg)
}
