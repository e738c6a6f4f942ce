package interp

import (
	"math"
	"testing"
)

const eps = 1e-9

func bufferOf(snaps ...sample) *Buffer[sample] {
	b := NewBuffer[sample](len(snaps) + 4)
	for _, s := range snaps {
		b.InsertIfNewEnough(s)
	}
	return b
}

func TestStepNotReadyUnderTwo(t *testing.T) {
	interpTime := 0.5

	b := bufferOf()
	if _, ok := Step(10, 0.1, &interpTime, 0.1, b, 4, 0.1); ok {
		t.Fatal("空缓冲区不应产出快照")
	}

	b.InsertIfNewEnough(snap(0, 0, 1))
	if _, ok := Step(10, 0.1, &interpTime, 0.1, b, 4, 0.1); ok {
		t.Fatal("单条快照不应产出")
	}

	if interpTime != 0.5 {
		t.Fatalf("未就绪时游标被改动: %v", interpTime)
	}
}

func TestStepWarmingGate(t *testing.T) {
	// 第二条快照本地到达时间 1.1 > 3 - 2，未熟化
	b := bufferOf(snap(0.1, 0.1, 0), snap(0.9, 1.1, 0))
	interpTime := 0.0

	if _, ok := Step(3, 0.5, &interpTime, 2, b, 4, 0); ok {
		t.Fatal("缓冲深度未到不应产出")
	}
	if interpTime != 0 {
		t.Fatalf("门控期间游标被改动: %v", interpTime)
	}
	if b.Len() != 2 {
		t.Fatalf("门控期间缓冲区被改动: %d", b.Len())
	}
}

func TestStepScenarios(t *testing.T) {
	tests := []struct {
		name              string
		snaps             []sample
		localTime         float64
		deltaTime         float64
		interpTime        float64
		bufferTime        float64
		catchupThreshold  int
		catchupMultiplier float64

		wantValue  float64
		wantCursor float64
		wantLen    int
	}{
		{
			name:       "基本插值",
			snaps:      []sample{snap(0, 0, 1.0), snap(2, 2, 2.0)},
			localTime:  4, deltaTime: 1.5, interpTime: 0,
			bufferTime: 2, catchupThreshold: 4, catchupMultiplier: 0,
			wantValue: 1.75, wantCursor: 1.5, wantLen: 2,
		},
		{
			name: "追赶加速",
			snaps: []sample{
				snap(0, 0, 1), snap(1, 1, 2), snap(2, 2, 3), snap(3, 3, 4),
			},
			localTime:  3, deltaTime: 0.5, interpTime: 0,
			bufferTime: 2, catchupThreshold: 2, catchupMultiplier: 0.25,
			// 超出 2 条: 0.5 × (1 + 2×0.25) = 0.75
			wantValue: 1.75, wantCursor: 0.75, wantLen: 4,
		},
		{
			name:       "超程不外推",
			snaps:      []sample{snap(0, 0, 1), snap(1, 1, 2)},
			localTime:  3, deltaTime: 0.5, interpTime: 1,
			bufferTime: 2, catchupThreshold: 4, catchupMultiplier: 0,
			// 游标越过区间末端，停在最新快照上，不回退不扣除
			wantValue: 2.0, wantCursor: 1.5, wantLen: 2,
		},
		{
			name:       "超程跨段",
			snaps:      []sample{snap(0, 0, 1), snap(1, 1, 2), snap(3, 3, 4)},
			localTime:  3, deltaTime: 0.5, interpTime: 1,
			bufferTime: 2, catchupThreshold: 4, catchupMultiplier: 0,
			// 1.5 越过首段跨度 1：弹出并扣除，新区间 [1,3] 上 t=0.25
			wantValue: 2.5, wantCursor: 0.5, wantLen: 2,
		},
		{
			name: "双重跨段",
			snaps: []sample{
				snap(0, 0, 1), snap(1, 1, 2), snap(3, 3, 4), snap(5, 5, 6),
			},
			localTime:  5, deltaTime: 2.5, interpTime: 1,
			bufferTime: 2, catchupThreshold: 4, catchupMultiplier: 0,
			// 3.5 → 扣 1 → 2.5 → 扣 2 → 0.5，区间 [3,5] 上 t=0.25
			wantValue: 4.5, wantCursor: 0.5, wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bufferOf(tt.snaps...)
			interpTime := tt.interpTime

			got, ok := Step(
				tt.localTime, tt.deltaTime, &interpTime,
				tt.bufferTime, b, tt.catchupThreshold, tt.catchupMultiplier,
			)
			if !ok {
				t.Fatal("期望产出快照")
			}
			if math.Abs(got.value-tt.wantValue) > eps {
				t.Errorf("值 = %v, 期望 %v", got.value, tt.wantValue)
			}
			if math.Abs(interpTime-tt.wantCursor) > eps {
				t.Errorf("游标 = %v, 期望 %v", interpTime, tt.wantCursor)
			}
			if b.Len() != tt.wantLen {
				t.Errorf("缓冲长度 = %d, 期望 %d", b.Len(), tt.wantLen)
			}
		})
	}
}

func TestStepZeroDeltaIsRepeatable(t *testing.T) {
	// deltaTime = 0 合法：游标不动，连续两次调用产出完全相同
	b := bufferOf(snap(0, 0, 1.0), snap(2, 2, 3.0))
	interpTime := 0.5

	first, ok1 := Step(10, 0, &interpTime, 0.1, b, 4, 0.1)
	cursorAfterFirst := interpTime
	second, ok2 := Step(10, 0, &interpTime, 0.1, b, 4, 0.1)

	if !ok1 || !ok2 {
		t.Fatal("两次调用都应产出")
	}
	if first.value != second.value {
		t.Errorf("产出不一致: %v vs %v", first.value, second.value)
	}
	if interpTime != cursorAfterFirst || interpTime != 0.5 {
		t.Errorf("游标被改动: %v", interpTime)
	}
}

func TestStepMonotonicOutput(t *testing.T) {
	// 无新准入、deltaTime ≥ 0 时，产出位置单调不减
	b := bufferOf(
		snap(0, 0, 0), snap(1, 1, 1), snap(2, 2, 2), snap(3, 3, 3),
	)
	interpTime := 0.0

	prev := math.Inf(-1)
	for i := 0; i < 40; i++ {
		got, ok := Step(100, 0.1, &interpTime, 0.1, b, 100, 0)
		if !ok {
			t.Fatalf("第 %d 帧未产出", i)
		}
		// 负载随远端时间线单调递增，可直接当位置看
		if got.value < prev-eps {
			t.Fatalf("第 %d 帧输出倒退: %v < %v", i, got.value, prev)
		}
		prev = got.value
	}

	// 走完整条时间线后停在最新快照上
	if math.Abs(prev-3) > eps {
		t.Fatalf("最终输出 = %v, 期望 3", prev)
	}
}

func TestStepCatchupDisabled(t *testing.T) {
	b := bufferOf(
		snap(0, 0, 0), snap(1, 1, 1), snap(2, 2, 2),
		snap(3, 3, 3), snap(4, 4, 4), snap(5, 5, 5),
	)
	interpTime := 0.0

	// 乘数为 0：即使缓冲积压也不加速
	if _, ok := Step(100, 0.25, &interpTime, 0.1, b, 1, 0); !ok {
		t.Fatal("期望产出")
	}
	if math.Abs(interpTime-0.25) > eps {
		t.Fatalf("游标 = %v, 期望 0.25", interpTime)
	}
}

func TestStepOvershootRecovery(t *testing.T) {
	// 超程卡在最新快照上之后来了新快照，下一帧自然消化剩余超程
	b := bufferOf(snap(0, 0, 0), snap(1, 1, 1))
	interpTime := 0.0

	got, _ := Step(100, 2.5, &interpTime, 0.1, b, 10, 0)
	if math.Abs(got.value-1) > eps {
		t.Fatalf("超程期间应停在最新快照: %v", got.value)
	}
	if math.Abs(interpTime-2.5) > eps {
		t.Fatalf("游标 = %v, 期望 2.5", interpTime)
	}

	b.InsertIfNewEnough(snap(2, 2, 2))
	b.InsertIfNewEnough(snap(4, 4, 4))

	// 游标 2.5 + 0.1：扣除 [0,1] 跨度 1、[1,2] 跨度 1 后在 [2,4] 上
	got, _ = Step(100, 0.1, &interpTime, 0.1, b, 10, 0)
	if math.Abs(interpTime-0.6) > eps {
		t.Fatalf("游标 = %v, 期望 0.6", interpTime)
	}
	if math.Abs(got.value-2.6) > eps {
		t.Fatalf("值 = %v, 期望 2.6", got.value)
	}
}

func TestInterpolatorWrapper(t *testing.T) {
	it := NewInterpolator[sample](Settings{
		BufferTime:        0.1,
		CatchupThreshold:  4,
		CatchupMultiplier: 0,
	})

	it.Insert(snap(0, 0, 1.0))
	if _, ok := it.Step(10, 0.5); ok {
		t.Fatal("单条快照不应产出")
	}
	if it.Cursor() != 0 {
		t.Fatalf("未就绪时游标被改动: %v", it.Cursor())
	}

	it.Insert(snap(2, 0.1, 3.0))
	got, ok := it.Step(10, 0.5)
	if !ok {
		t.Fatal("期望产出")
	}
	if math.Abs(got.value-1.5) > eps {
		t.Errorf("值 = %v, 期望 1.5", got.value)
	}
	if it.BufferLen() != 2 {
		t.Errorf("缓冲长度 = %d, 期望 2", it.BufferLen())
	}

	it.Reset()
	if it.BufferLen() != 0 || it.Cursor() != 0 {
		t.Errorf("Reset 后状态未清空: len=%d cursor=%v", it.BufferLen(), it.Cursor())
	}
}
