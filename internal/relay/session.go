package relay

// Session 一条对端会话（hub 只通过它下发数据）
type Session interface {
	ID() string
	Send(data []byte) error
	Close()
	CloseWithoutNotify()
}
