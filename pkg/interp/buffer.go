package interp

import "sort"

// Buffer 按远端时间戳严格升序排列的快照缓冲区
// 实际抖动下容量不过几十条，排序切片足够（见 InsertIfNewEnough）
type Buffer[S Snapshot[S]] struct {
	snaps []S
}

// NewBuffer 创建快照缓冲区
func NewBuffer[S Snapshot[S]](capacity int) *Buffer[S] {
	return &Buffer[S]{
		snaps: make([]S, 0, capacity),
	}
}

// InsertIfNewEnough 准入规则：
//   - 空缓冲区：直接收下
//   - 只有一条：来的比驻留那条旧就丢弃（头部必须保持最新，
//     重新锁到更旧的数据会吃掉延迟预算）
//   - 两条以上：前两条是正在服务的插值区间，来的时间戳必须
//     严格大于第二条，否则丢弃（区间中途被改写会产生可见跳变）
//
// 丢弃是静默的，不算错误
func (b *Buffer[S]) InsertIfNewEnough(s S) {
	switch len(b.snaps) {
	case 0:
		b.snaps = append(b.snaps, s)

	case 1:
		if s.RemoteTime() > b.snaps[0].RemoteTime() {
			b.snaps = append(b.snaps, s)
		}

	default:
		if s.RemoteTime() <= b.snaps[1].RemoteTime() {
			return
		}
		idx := sort.Search(len(b.snaps), func(i int) bool {
			return b.snaps[i].RemoteTime() >= s.RemoteTime()
		})
		if idx < len(b.snaps) && b.snaps[idx].RemoteTime() == s.RemoteTime() {
			// 时间戳重复，保持键严格递增
			return
		}
		var zero S
		b.snaps = append(b.snaps, zero)
		copy(b.snaps[idx+1:], b.snaps[idx:])
		b.snaps[idx] = s
	}
}

// Len 当前缓冲的快照数
func (b *Buffer[S]) Len() int {
	return len(b.snaps)
}

// At 返回第 i 条快照（0 为最旧）
func (b *Buffer[S]) At(i int) S {
	return b.snaps[i]
}

// Newest 返回最新一条快照，缓冲区为空时 ok 为 false
func (b *Buffer[S]) Newest() (S, bool) {
	if len(b.snaps) == 0 {
		var zero S
		return zero, false
	}
	return b.snaps[len(b.snaps)-1], true
}

// PopFront 弹出最旧的一条
func (b *Buffer[S]) PopFront() {
	if len(b.snaps) == 0 {
		return
	}
	var zero S
	copy(b.snaps, b.snaps[1:])
	b.snaps[len(b.snaps)-1] = zero
	b.snaps = b.snaps[:len(b.snaps)-1]
}

// Reset 清空缓冲区（断线重连后使用）
func (b *Buffer[S]) Reset() {
	var zero S
	for i := range b.snaps {
		b.snaps[i] = zero
	}
	b.snaps = b.snaps[:0]
}
