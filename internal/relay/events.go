package relay

import (
	"fmt"

	"snapsync/pkg/protocol"
)

// EventKind 服务端事件类型
type EventKind int

const (
	EventHello EventKind = iota
	EventState
	EventPing
	EventPong
	EventBye
)

// HelloEvent 握手请求
type HelloEvent struct {
	Role   string
	Entity string
}

// StateEvent 发布方上行的快照
type StateEvent struct {
	Token string
	State protocol.State
}

// PingEvent / PongEvent 心跳
type PingEvent struct {
	ClientTime float64
}

type PongEvent struct {
	ClientTime float64
}

// Event 解码后的服务端事件
type Event struct {
	Kind  EventKind
	Hello *HelloEvent
	State *StateEvent
	Ping  *PingEvent
	Pong  *PongEvent
}

// DecodePacket 解析服务端收到的数据包
func DecodePacket(data []byte) (*Event, error) {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return nil, fmt.Errorf("解析包失败: %w", err)
	}

	switch pkt.Type {
	case protocol.PacketHello:
		return &Event{
			Kind: EventHello,
			Hello: &HelloEvent{
				Role:   pkt.Role,
				Entity: pkt.Entity,
			},
		}, nil

	case protocol.PacketState:
		return &Event{
			Kind: EventState,
			State: &StateEvent{
				Token: pkt.Token,
				State: pkt.State,
			},
		}, nil

	case protocol.PacketPing:
		return &Event{
			Kind: EventPing,
			Ping: &PingEvent{ClientTime: pkt.ClientTime},
		}, nil

	case protocol.PacketPong:
		return &Event{
			Kind: EventPong,
			Pong: &PongEvent{ClientTime: pkt.ClientTime},
		}, nil

	case protocol.PacketBye:
		return &Event{Kind: EventBye}, nil

	default:
		return nil, fmt.Errorf("未知消息类型: %d", pkt.Type)
	}
}
