package layout

const (
	// DefaultMaxPasses 是形状内排版的最大遍数。
	DefaultMaxPasses = 1000
	// maxPullsPerRun 是单个区间内拉取片段的次数上限，超过即视为逻辑缺陷。
	maxPullsPerRun = 1000
	// overflowTolerance 允许区间内第一个片段超出目标宽度的比例。
	overflowTolerance = 0.05
	// tailGapLines 是形状与溢出尾部之间的空行数。
	tailGapLines = 3
	// tailStallLines 是溢出尾部剩余文本连续未减少的行数上限。
	tailStallLines = 3
)

// Options 配置排版阶段的尺寸参数。两个宽度单位一致即可（像素或字符格）。
type Options struct {
	CharWidth   float64 // 每个等宽字符的宽度
	RenderWidth float64 // 整体渲染宽度
	MaxPasses   int     // 形状遍历次数上限，<=0 时使用 DefaultMaxPasses
	Debug       DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	KeepSegments bool // 在 Result 中保留排版结束时的片段序列
}

func (o Options) maxPasses() int {
	if o.MaxPasses <= 0 {
		return DefaultMaxPasses
	}
	return o.MaxPasses
}
