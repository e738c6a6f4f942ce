package interp

// Snapshot 快照能力约束：一条带双时间戳的远端状态样本
// RemoteTime 是生产方时钟（排序与区间跨度都用它）
// LocalTime 是消费方收到样本时的本地时钟（只用于抖动缓冲门控）
// Interpolate 在 self 与 to 之间按 t∈[0,1] 做成对插值，
// 返回快照的时间戳不保证有意义，调用方不得消费
type Snapshot[S any] interface {
	RemoteTime() float64
	LocalTime() float64
	Interpolate(to S, t float64) S
}
