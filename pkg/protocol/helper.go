package protocol

// ========== 辅助构造方法 ==========

// NewHelloPacket 构造握手包
func NewHelloPacket(role, entity string) *Packet {
	return &Packet{
		Type:   PacketHello,
		Role:   role,
		Entity: entity,
	}
}

// NewWelcomePacket 构造握手应答包
func NewWelcomePacket(token, entity string, serverTime float64) *Packet {
	return &Packet{
		Type:       PacketWelcome,
		Token:      token,
		Entity:     entity,
		ServerTime: serverTime,
	}
}

// NewStatePacket 构造快照包（发布方上行时携带会话 Token）
func NewStatePacket(token string, state State) *Packet {
	return &Packet{
		Type:  PacketState,
		Token: token,
		State: state,
	}
}

// NewPingPacket 构造心跳包
func NewPingPacket(clientTime float64) *Packet {
	return &Packet{
		Type:       PacketPing,
		ClientTime: clientTime,
	}
}

// NewPongPacket 构造心跳应答包
func NewPongPacket(clientTime, serverTime float64) *Packet {
	return &Packet{
		Type:       PacketPong,
		ClientTime: clientTime,
		ServerTime: serverTime,
	}
}

// NewErrorPacket 构造拒绝包
func NewErrorPacket(detail string) *Packet {
	return &Packet{
		Type:   PacketError,
		Detail: detail,
	}
}

// NewByePacket 构造离线包
func NewByePacket() *Packet {
	return &Packet{Type: PacketBye}
}
