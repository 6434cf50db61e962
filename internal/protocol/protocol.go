// internal/protocol/protocol.go
package protocol

import "encoding/json"

// State is the short wire tag carried in every packet: a two-letter category
// prefix (RQ request, RS response, DP data packet) followed by an ordinal.
type State string

// Request states. A request expects exactly one matching response.
const (
	ReqNewGame   State = "RQ1"
	ReqJoinGame  State = "RQ2"
	ReqStartGame State = "RQ3"
	ReqGameData  State = "RQ4"
	ReqUUID      State = "RQ5"
	ReqPlaceCard State = "RQ6"
	ReqPredict   State = "RQ7"
	ReqSetName   State = "RQ8"
	ReqLeaveGame State = "RQ9"
)

// Response states.
const (
	RespCreateGameSuccess State = "RS1"
	RespCreateGameFailed  State = "RS2"
	RespJoinGameSuccess   State = "RS3"
	RespJoinGameFailed    State = "RS4"
	RespStartGameSuccess  State = "RS5"
	RespStartGameFailed   State = "RS6"
	RespAlreadyInGame     State = "RS7"
	RespNotInGame         State = "RS8"
	RespInvalidRequest    State = "RS9"
	RespUnknownError      State = "RS10"
	RespGameData          State = "RS11"
	RespUUID              State = "RS12"
	RespGameNotStarted    State = "RS13"
	RespNotTurn           State = "RS14"
	RespInvalidCard       State = "RS15"
	RespInvalidPrediction State = "RS16"
	RespSuccess           State = "RS17"
	RespSetNameFailed     State = "RS18"
)

// Data packet states. Data packets are fire-and-forget pushes.
const (
	DataGameData State = "DP1"
	DataUUID     State = "DP2"
	DataToken    State = "DP3"
)

// Waiting states describe why a started game is blocked and on whom.
const (
	WaitingNone       = "G0"
	WaitingGameStart  = "G1"
	WaitingRoundStart = "G2"
	WaitingPrediction = "G3"
	WaitingPlaceCard  = "G4"
	WaitingMinPlayers = "G5"
	WaitingGameEnd    = "G6"
)

// IsRequest reports whether the tag is in the request category.
func (s State) IsRequest() bool { return len(s) >= 2 && s[0] == 'R' && s[1] == 'Q' }

// IsResponse reports whether the tag is in the response category.
func (s State) IsResponse() bool { return len(s) >= 2 && s[0] == 'R' && s[1] == 'S' }

// IsData reports whether the tag is in the data packet category.
func (s State) IsData() bool { return len(s) >= 2 && s[0] == 'D' && s[1] == 'P' }

// Packet is the unit of exchange on the wire. Data is left raw so each
// handler can decode the category-dependent payload it expects.
type Packet struct {
	State State           `json:"state"`
	Data  json.RawMessage `json:"data"`
}

// NewPacket builds a packet with the given state and marshaled data.
func NewPacket(state State, data interface{}) (Packet, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Packet{}, err
	}
	return Packet{State: state, Data: raw}, nil
}

// StartParams is the payload of a ReqStartGame packet.
type StartParams struct {
	StartingCards int    `json:"starting_cards"`
	TrumpOrder    string `json:"trump_order"`
}
