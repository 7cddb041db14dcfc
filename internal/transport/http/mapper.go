package http

import (
	"encoding/json"

	"github.com/peyk-chat/peyk-server/internal/core"
	"github.com/peyk-chat/peyk-server/internal/proto"
)

// inboundToCommand translates a wire frame into a core command. A non-nil
// ErrorData means the frame was malformed; the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.ErrorData) {
	switch inbound.Event {
	case proto.EventGetRooms:
		return &core.Command{Kind: core.CommandListRooms}, nil

	case proto.EventGetOnlineUsers:
		return &core.Command{Kind: core.CommandListOnlineUsers}, nil

	case proto.EventJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil || join.Endpoint == "" {
			errData := proto.NewErrorData(422, "endpoint is required")
			return nil, &errData
		}
		return &core.Command{Kind: core.CommandJoinRoom, Endpoint: join.Endpoint}, nil

	case proto.EventSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			errData := proto.NewErrorData(422, "invalid message payload")
			return nil, &errData
		}
		return &core.Command{Kind: core.CommandSendMessage, Content: msg.Content}, nil

	default:
		errData := proto.NewErrorData(422, "unknown event")
		return nil, &errData
	}
}

// outboundFromEvent translates a core event into a wire frame.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRooms:
		return proto.Outbound{
			Event: proto.EventGetRooms,
			Data:  proto.RoomsData{Rooms: event.Rooms},
		}
	case core.EventOnlineUsers:
		return proto.Outbound{
			Event: proto.EventGetOnlineUsers,
			Data:  proto.OnlineUsersData{OnlineUsers: event.OnlineUsers},
		}
	case core.EventHistory:
		return proto.Outbound{
			Event: proto.EventJoinRoom,
			Data:  proto.MessagesData{Messages: event.Messages},
		}
	case core.EventMessage:
		return proto.Outbound{
			Event: proto.EventReceiveMessage,
			Data:  proto.MessageData{Message: event.Message},
		}
	case core.EventPresence:
		return proto.Outbound{
			Event: proto.EventOnlineStatus,
			Data:  proto.OnlineStatusData{UserID: event.UserID, IsOnline: event.IsOnline},
		}
	case core.EventError:
		coreErr := event.Error
		if coreErr == nil {
			coreErr = core.ErrInternal()
		}
		return proto.Outbound{
			Event: proto.EventError,
			Data:  proto.NewErrorData(coreErr.StatusCode, coreErr.Message),
		}
	default:
		return proto.Outbound{Event: proto.EventError, Data: proto.NewErrorData(500, "unknown event")}
	}
}
