package client

import (
	"sort"

	"snapsync/pkg/interp"
	"snapsync/pkg/transform"
)

// Pose 一个实体本帧应显示的姿态
type Pose struct {
	Entity string
	Pos    transform.Vec3
	Rot    transform.Quat
	Scale  transform.Vec3

	// 调试信息
	BufferLen int
	Cursor    float64
}

// Entities 远端实体表：每个实体一套插值器
// 单线程使用：Apply 与 Step 都由消费方的帧循环串行调用
type Entities struct {
	settings interp.Settings
	m        map[string]*entity
}

type entity struct {
	interpolator *interp.Interpolator[transform.Snapshot]
	last         transform.Snapshot
	hasPose      bool
}

// NewEntities 创建实体表
func NewEntities(settings interp.Settings) *Entities {
	return &Entities{
		settings: settings,
		m:        make(map[string]*entity),
	}
}

// Apply 准入一条下行快照（本地到达时间由调用方收包时打好）
func (e *Entities) Apply(env StateEnvelope) {
	ent, ok := e.m[env.State.Entity]
	if !ok {
		ent = &entity{
			interpolator: interp.NewInterpolator[transform.Snapshot](e.settings),
		}
		e.m[env.State.Entity] = ent
	}
	ent.interpolator.Insert(env.State.Snapshot(env.LocalTime))
}

// Step 推进全部实体一帧，返回各实体当前姿态（按实体名排序，稳定遍历）
// 插值器尚未就绪的实体保持上一次的姿态；从未产出过的实体不出现在结果里
func (e *Entities) Step(localTime, deltaTime float64) []Pose {
	names := make([]string, 0, len(e.m))
	for name := range e.m {
		names = append(names, name)
	}
	sort.Strings(names)

	poses := make([]Pose, 0, len(names))
	for _, name := range names {
		ent := e.m[name]

		if snap, ok := ent.interpolator.Step(localTime, deltaTime); ok {
			ent.last = snap
			ent.hasPose = true
		}
		if !ent.hasPose {
			continue
		}

		poses = append(poses, Pose{
			Entity:    name,
			Pos:       ent.last.Pos,
			Rot:       ent.last.Rot,
			Scale:     ent.last.Scale,
			BufferLen: ent.interpolator.BufferLen(),
			Cursor:    ent.interpolator.Cursor(),
		})
	}
	return poses
}

// Remove 移除一个实体
func (e *Entities) Remove(name string) {
	delete(e.m, name)
}

// Len 当前实体数
func (e *Entities) Len() int {
	return len(e.m)
}
