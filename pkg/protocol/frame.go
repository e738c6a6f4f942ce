package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// 长度前缀帧：4 字节大端长度 + 包体
// KCP 与 TCP 都按字节流处理，消息边界全靠前缀

// WriteFrame 写出一帧
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("消息过大 (%d bytes)", len(data))
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadFrame 读入一帧
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("消息过大 (%d bytes)", length)
	}
	if length == 0 {
		return nil, ErrEmptyPacket
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
