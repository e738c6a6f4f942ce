package protocol

// ========== 包类型与角色 ==========

const (
	PacketHello   = 1 // 客户端握手：声明角色与实体
	PacketWelcome = 2 // 服务端应答：下发会话 Token
	PacketState   = 3 // 状态快照（双向：发布方上行，中继下行）
	PacketPing    = 4
	PacketPong    = 5
	PacketError   = 6 // 服务端拒绝，Detail 携带原因
	PacketBye     = 7
)

const (
	RolePublisher  = "publisher"  // 发布一个实体的快照流
	RoleSubscriber = "subscriber" // 订阅全部实体
)

// Vec3 线上三维向量
type Vec3 struct {
	X float64 `avro:"x"`
	Y float64 `avro:"y"`
	Z float64 `avro:"z"`
}

// Quat 线上四元数
type Quat struct {
	X float64 `avro:"x"`
	Y float64 `avro:"y"`
	Z float64 `avro:"z"`
	W float64 `avro:"w"`
}

// State 一条线上快照
// RemoteTime 是生产方时钟；本地到达时间由消费方收到后自己打，
// 不在线上传输
type State struct {
	Entity     string  `avro:"entity"`
	RemoteTime float64 `avro:"remoteTime"`
	Pos        Vec3    `avro:"pos"`
	Rot        Quat    `avro:"rot"`
	Scale      Vec3    `avro:"scale"`
}

// Packet 统一包封装，Type 决定哪些字段有意义
type Packet struct {
	Type       int     `avro:"type"`
	Token      string  `avro:"token"`
	Role       string  `avro:"role"`
	Entity     string  `avro:"entity"`
	ClientTime float64 `avro:"clientTime"`
	ServerTime float64 `avro:"serverTime"`
	Detail     string  `avro:"detail"`
	State      State   `avro:"state"`
}
