package transform

// Snapshot 变换快照：位置/旋转/缩放加双时间戳
// Remote 是生产方时钟，Local 是消费方收到时的本地时钟
type Snapshot struct {
	Remote float64
	Local  float64

	Pos   Vec3
	Rot   Quat
	Scale Vec3
}

// RemoteTime 生产方时间戳
func (s Snapshot) RemoteTime() float64 {
	return s.Remote
}

// LocalTime 本地到达时间戳
func (s Snapshot) LocalTime() float64 {
	return s.Local
}

// Interpolate 位置与缩放线性插值，旋转球面插值
// 返回快照的时间戳不承诺有意义
func (s Snapshot) Interpolate(to Snapshot, t float64) Snapshot {
	return Snapshot{
		Remote: s.Remote + (to.Remote-s.Remote)*t,
		Local:  s.Local + (to.Local-s.Local)*t,
		Pos:    s.Pos.Lerp(to.Pos, t),
		Rot:    s.Rot.Slerp(to.Rot, t),
		Scale:  s.Scale.Lerp(to.Scale, t),
	}
}
