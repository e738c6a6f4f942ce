package interp

// Settings 插值引擎参数
type Settings struct {
	// BufferTime 抖动缓冲深度（秒）：第二条快照在本地时钟上
	// 至少要有这么老，插值才会启动
	BufferTime float64

	// CatchupThreshold 缓冲条数超过该阈值时进入追赶
	CatchupThreshold int

	// CatchupMultiplier 每超出一条的分数加速；0 表示关闭追赶
	CatchupMultiplier float64
}

// DefaultSettings 默认参数：100ms 缓冲，超过 4 条开始追赶，每条加速 10%
func DefaultSettings() Settings {
	return Settings{
		BufferTime:        0.1,
		CatchupThreshold:  4,
		CatchupMultiplier: 0.10,
	}
}

// Step 推进一次插值游标，必要时消费缓冲区队首，产出一条插值快照
//
// localTime 是消费方当前时钟（秒），deltaTime 是距上次调用的本地耗时，
// interpTime 是游标：自当前区间起点生效以来走过的本地时间，跨段时扣除
// 区间跨度。返回 (快照, true) 表示本帧有结果；(零值, false) 表示缓冲
// 尚未就绪，游标不动
//
// 不做外推：游标越过最后一个已知区间末端时停在最新快照上，等新快照
// 到达后在后续调用里自然消化剩余的超程
func Step[S Snapshot[S]](
	localTime, deltaTime float64,
	interpTime *float64,
	bufferTime float64,
	buf *Buffer[S],
	catchupThreshold int,
	catchupMultiplier float64,
) (S, bool) {
	var zero S

	// 就绪门：不足两条无法构成插值区间
	if buf.Len() < 2 {
		return zero, false
	}

	// 抖动缓冲门：第二条快照在本地时钟上未熟化前不启动
	// 用本地到达时间而不是远端时间戳，双方时钟偏移不会破坏缓冲
	if buf.snaps[1].LocalTime() > localTime-bufferTime {
		return zero, false
	}

	// 追赶：缓冲积压超过阈值时按超出量加速游标
	excess := buf.Len() - catchupThreshold
	if excess < 0 {
		excess = 0
	}
	*interpTime += deltaTime * (1 + float64(excess)*catchupMultiplier)

	// 跨段推进：游标走完当前区间且后面还有区间时，弹出队首并
	// 扣除区间跨度，让下一对快照顶上来
	for buf.Len() >= 3 {
		span := buf.snaps[1].RemoteTime() - buf.snaps[0].RemoteTime()
		if *interpTime < span {
			break
		}
		*interpTime -= span
		buf.PopFront()
	}

	from, to := buf.snaps[0], buf.snaps[1]
	span := to.RemoteTime() - from.RemoteTime()

	// 超程钳制：游标到达区间末端且没有新数据，停在最新快照上
	// 游标保持超出值不回退
	if *interpTime >= span {
		return to.Interpolate(to, 0), true
	}

	// 有序缓冲保证 span 严格为正，t 总是良定义
	t := *interpTime / span
	return from.Interpolate(to, t), true
}

// Interpolator 把游标、缓冲区和参数捆在一起的消费方状态对象
// 单线程使用；若生产方在别的 goroutine 准入，调用方自行加锁
type Interpolator[S Snapshot[S]] struct {
	settings Settings
	buffer   *Buffer[S]
	cursor   float64
}

// NewInterpolator 创建插值器
func NewInterpolator[S Snapshot[S]](settings Settings) *Interpolator[S] {
	return &Interpolator[S]{
		settings: settings,
		buffer:   NewBuffer[S](32),
	}
}

// Insert 准入一条快照（规则见 Buffer.InsertIfNewEnough）
func (it *Interpolator[S]) Insert(s S) {
	it.buffer.InsertIfNewEnough(s)
}

// Step 推进一帧，语义同包级 Step
func (it *Interpolator[S]) Step(localTime, deltaTime float64) (S, bool) {
	return Step(
		localTime, deltaTime,
		&it.cursor,
		it.settings.BufferTime,
		it.buffer,
		it.settings.CatchupThreshold,
		it.settings.CatchupMultiplier,
	)
}

// BufferLen 当前缓冲条数
func (it *Interpolator[S]) BufferLen() int {
	return it.buffer.Len()
}

// Cursor 当前游标值（秒）
func (it *Interpolator[S]) Cursor() float64 {
	return it.cursor
}

// Reset 清空缓冲区并把游标归零
func (it *Interpolator[S]) Reset() {
	it.buffer.Reset()
	it.cursor = 0
}
