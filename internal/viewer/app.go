package viewer

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"snapsync/internal/client"
	"snapsync/pkg/transform"
)

const (
	ScreenWidth  = 800
	ScreenHeight = 600
	FPS          = 60

	entitySize = 24
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

// 实体配色轮换
var palette = []color.RGBA{
	{0xE5, 0x50, 0x39, 0xFF},
	{0x3E, 0x8E, 0xDE, 0xFF},
	{0x41, 0xB8, 0x83, 0xFF},
	{0xF0, 0xA0, 0x30, 0xFF},
}

// App 演示查看器（Ebiten 帧循环）
// 每帧：排空下行快照队列做准入，再推进全部实体的插值器
type App struct {
	client   *client.Client
	entities *client.Entities

	lastTime float64
	started  bool
	poses    []client.Pose
}

// NewApp 创建查看器
func NewApp(netClient *client.Client, entities *client.Entities) *App {
	return &App{
		client:   netClient,
		entities: entities,
	}
}

// Update 更新一帧
func (a *App) Update() error {
	now := a.client.Now()
	dt := 0.0
	if a.started {
		dt = now - a.lastTime
	}
	a.lastTime = now
	a.started = true

	// 排空下行队列
	for {
		env, ok := a.client.ReceiveState()
		if !ok {
			break
		}
		a.entities.Apply(env)
	}

	a.poses = a.entities.Step(now, dt)
	return nil
}

// Draw 绘制一帧
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x18, 0x1C, 0x22, 0xFF})

	cx, cy := float64(ScreenWidth)/2, float64(ScreenHeight)/2

	for i, pose := range a.poses {
		clr := palette[i%len(palette)]

		w := float32(entitySize * pose.Scale.X)
		h := float32(entitySize * pose.Scale.Y)
		x := float32(cx+pose.Pos.X) - w/2
		y := float32(cy+pose.Pos.Y) - h/2
		vector.DrawFilledRect(screen, x, y, w, h, clr, true)

		// 朝向线：把单位 X 轴转到实体朝向
		heading := pose.Rot.Rotate(transform.Vec3{X: 1})
		vector.StrokeLine(screen,
			float32(cx+pose.Pos.X),
			float32(cy+pose.Pos.Y),
			float32(cx+pose.Pos.X+heading.X*entitySize),
			float32(cy+pose.Pos.Y+heading.Y*entitySize),
			2, color.White, true,
		)

		label := fmt.Sprintf("%s buf=%d cur=%.2f", pose.Entity, pose.BufferLen, pose.Cursor)
		opts := &text.DrawOptions{}
		opts.GeoM.Translate(cx+pose.Pos.X+entitySize, cy+pose.Pos.Y-entitySize)
		opts.ColorScale.ScaleWithColor(color.White)
		text.Draw(screen, label, hudFont, opts)
	}

	hud := fmt.Sprintf("entities: %d  t=%.1fs", len(a.poses), a.lastTime)
	opts := &text.DrawOptions{}
	opts.GeoM.Translate(8, 8)
	opts.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, hud, hudFont, opts)
}

// Layout 设置布局
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
