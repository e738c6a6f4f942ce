package protocol

import "snapsync/pkg/transform"

// ========== 线上类型与内部类型互转 ==========

// Vec3ToTransform 线上向量转内部向量
func Vec3ToTransform(v Vec3) transform.Vec3 {
	return transform.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Vec3FromTransform 内部向量转线上向量
func Vec3FromTransform(v transform.Vec3) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// QuatToTransform 线上四元数转内部四元数
func QuatToTransform(q Quat) transform.Quat {
	return transform.Quat{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// QuatFromTransform 内部四元数转线上四元数
func QuatFromTransform(q transform.Quat) Quat {
	return Quat{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// StateFromSnapshot 内部快照转线上快照
func StateFromSnapshot(entity string, s transform.Snapshot) State {
	return State{
		Entity:     entity,
		RemoteTime: s.Remote,
		Pos:        Vec3FromTransform(s.Pos),
		Rot:        QuatFromTransform(s.Rot),
		Scale:      Vec3FromTransform(s.Scale),
	}
}

// Snapshot 线上快照转内部快照，localTime 由消费方收到时打
func (st State) Snapshot(localTime float64) transform.Snapshot {
	return transform.Snapshot{
		Remote: st.RemoteTime,
		Local:  localTime,
		Pos:    Vec3ToTransform(st.Pos),
		Rot:    QuatToTransform(st.Rot).Normalize(),
		Scale:  Vec3ToTransform(st.Scale),
	}
}
