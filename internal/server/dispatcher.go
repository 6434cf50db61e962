// internal/server/dispatcher.go
package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/game"
	"github.com/blobgame/blob/internal/models"
	"github.com/blobgame/blob/internal/protocol"
	"github.com/blobgame/blob/internal/session"
)

// dispatch routes one inbound packet by category. Requests get exactly one
// response; responses release the client's outbound request queue; anything
// else is a client protocol error, logged and dropped. Panics from the
// engine are converted to a generic error response so one misbehaving
// request cannot take the connection down.
func (s *Server) dispatch(ctx context.Context, client *session.Client, pkt protocol.Packet) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"player": client.ID,
				"state":  pkt.State,
				"panic":  r,
			}).Error("handler panicked")
			s.respond(client, protocol.RespUnknownError, "")
		}
	}()

	switch {
	case pkt.State.IsRequest():
		state, data := s.handleRequest(ctx, client, pkt)
		s.respond(client, state, data)
		s.log.WithFields(logrus.Fields{
			"player":   client.ID,
			"request":  pkt.State,
			"response": state,
		}).Info("request handled")

	case pkt.State.IsResponse():
		client.MarkResponded()

	default:
		s.log.WithFields(logrus.Fields{
			"player": client.ID,
			"state":  pkt.State,
		}).Warn("received invalid packet")
	}
}

func (s *Server) respond(client *session.Client, state protocol.State, data interface{}) {
	p, err := protocol.NewPacket(state, data)
	if err != nil {
		s.log.WithError(err).Error("failed to encode response")
		return
	}
	if err := client.Send(p); err != nil {
		s.log.WithError(err).WithField("player", client.ID).Debug("response not delivered")
	}
}

// handleRequest routes a request to its engine operation and converts the
// typed outcome into a response state and payload.
func (s *Server) handleRequest(ctx context.Context, client *session.Client, pkt protocol.Packet) (protocol.State, interface{}) {
	switch pkt.State {
	case protocol.ReqNewGame:
		view, err := s.manager.NewGame(ctx, client.ID)
		if err != nil {
			return s.failure(err)
		}
		return protocol.RespCreateGameSuccess, view

	case protocol.ReqJoinGame:
		var code string
		if err := json.Unmarshal(pkt.Data, &code); err != nil {
			return protocol.RespJoinGameFailed, "Invalid data."
		}
		view, err := s.manager.Join(ctx, client.ID, code)
		if err != nil {
			return s.failure(err)
		}
		return protocol.RespJoinGameSuccess, view

	case protocol.ReqStartGame:
		var params protocol.StartParams
		if err := json.Unmarshal(pkt.Data, &params); err != nil {
			return protocol.RespStartGameFailed, "Invalid data."
		}
		if err := s.manager.Start(ctx, client.ID, params); err != nil {
			return s.failure(err)
		}
		return protocol.RespStartGameSuccess, ""

	case protocol.ReqGameData:
		view, err := s.manager.GameData(ctx, client.ID)
		if err != nil {
			return s.failure(err)
		}
		return protocol.RespGameData, view

	case protocol.ReqUUID:
		return protocol.RespUUID, client.ID

	case protocol.ReqPlaceCard:
		var card models.Card
		if err := json.Unmarshal(pkt.Data, &card); err != nil {
			return protocol.RespInvalidCard, ""
		}
		if err := s.manager.PlaceCard(ctx, client.ID, card); err != nil {
			return s.failure(err)
		}
		return protocol.RespSuccess, ""

	case protocol.ReqPredict:
		var prediction int
		if err := json.Unmarshal(pkt.Data, &prediction); err != nil {
			return protocol.RespInvalidPrediction, ""
		}
		if err := s.manager.Predict(ctx, client.ID, prediction); err != nil {
			return s.failure(err)
		}
		return protocol.RespSuccess, ""

	case protocol.ReqSetName:
		var name string
		if err := json.Unmarshal(pkt.Data, &name); err != nil {
			return protocol.RespSetNameFailed, "Invalid data."
		}
		if err := s.users.SetName(ctx, client.ID, name); err != nil {
			return s.failure(err)
		}
		return protocol.RespSuccess, ""

	case protocol.ReqLeaveGame:
		if err := s.manager.Leave(ctx, client.ID); err != nil {
			return s.failure(err)
		}
		return protocol.RespSuccess, ""

	default:
		s.log.WithField("state", pkt.State).Warn("received invalid request")
		return protocol.RespInvalidRequest, ""
	}
}

// failure maps a typed engine error to its wire response. Anything
// unrecognized is an engine fault reported generically; it never propagates
// past the dispatcher.
func (s *Server) failure(err error) (protocol.State, interface{}) {
	var joinErr *game.JoinError
	var startErr *game.StartError
	switch {
	case errors.Is(err, game.ErrAlreadyInGame):
		return protocol.RespAlreadyInGame, ""
	case errors.Is(err, game.ErrNotInGame):
		return protocol.RespNotInGame, ""
	case errors.As(err, &joinErr):
		return protocol.RespJoinGameFailed, joinErr.Reason
	case errors.As(err, &startErr):
		return protocol.RespStartGameFailed, startErr.Reason
	case errors.Is(err, game.ErrGameNotStarted):
		return protocol.RespGameNotStarted, ""
	case errors.Is(err, game.ErrNotYourTurn):
		return protocol.RespNotTurn, ""
	case errors.Is(err, game.ErrInvalidCard):
		return protocol.RespInvalidCard, ""
	case errors.Is(err, game.ErrInvalidPrediction):
		return protocol.RespInvalidPrediction, ""
	case errors.Is(err, game.ErrNameTaken):
		return protocol.RespSetNameFailed, "Username is taken."
	case errors.Is(err, game.ErrGameInProgress):
		return protocol.RespInvalidRequest, "Cannot leave a started game."
	default:
		s.log.WithError(err).Error("engine operation failed")
		return protocol.RespUnknownError, ""
	}
}
