package protocol

import (
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/klauspost/compress/s2"
)

const (
	// MaxPacketSize 最大消息大小（线上帧体，含压缩头）
	MaxPacketSize = 4096

	// 包体超过该大小才压缩，小包压缩反而变大
	compressThreshold = 512
)

const (
	headerRaw        byte = 0x00
	headerCompressed byte = 0x01
)

var (
	ErrEmptyPacket   = errors.New("空数据包")
	ErrUnknownHeader = errors.New("未知压缩头")
)

var packetSchema = avro.MustParse(`{
	"type": "record",
	"name": "Packet",
	"namespace": "snapsync",
	"fields": [
		{"name": "type", "type": "int"},
		{"name": "token", "type": "string"},
		{"name": "role", "type": "string"},
		{"name": "entity", "type": "string"},
		{"name": "clientTime", "type": "double"},
		{"name": "serverTime", "type": "double"},
		{"name": "detail", "type": "string"},
		{"name": "state", "type": {
			"type": "record",
			"name": "State",
			"fields": [
				{"name": "entity", "type": "string"},
				{"name": "remoteTime", "type": "double"},
				{"name": "pos", "type": {
					"type": "record",
					"name": "Vec3",
					"fields": [
						{"name": "x", "type": "double"},
						{"name": "y", "type": "double"},
						{"name": "z", "type": "double"}
					]
				}},
				{"name": "rot", "type": {
					"type": "record",
					"name": "Quat",
					"fields": [
						{"name": "x", "type": "double"},
						{"name": "y", "type": "double"},
						{"name": "z", "type": "double"},
						{"name": "w", "type": "double"}
					]
				}},
				{"name": "scale", "type": "Vec3"}
			]
		}}
	]
}`)

// MarshalPacket 序列化数据包：avro 包体加一字节压缩头
func MarshalPacket(p *Packet) ([]byte, error) {
	body, err := avro.Marshal(packetSchema, p)
	if err != nil {
		return nil, fmt.Errorf("avro 序列化失败: %w", err)
	}

	if len(body) > compressThreshold {
		out := make([]byte, 0, len(body)/2+1)
		out = append(out, headerCompressed)
		return append(out, s2.Encode(nil, body)...), nil
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, headerRaw)
	return append(out, body...), nil
}

// UnmarshalPacket 反序列化数据包
func UnmarshalPacket(data []byte) (*Packet, error) {
	if len(data) < 2 {
		return nil, ErrEmptyPacket
	}

	body := data[1:]
	switch data[0] {
	case headerRaw:
	case headerCompressed:
		decoded, err := s2.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("s2 解压失败: %w", err)
		}
		body = decoded
	default:
		return nil, ErrUnknownHeader
	}

	var p Packet
	if err := avro.Unmarshal(packetSchema, body, &p); err != nil {
		return nil, fmt.Errorf("avro 反序列化失败: %w", err)
	}
	return &p, nil
}
