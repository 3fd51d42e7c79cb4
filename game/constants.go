package game

const (
	// TicksPerSecond is the amount of world ticks simulated per second.
	TicksPerSecond = 20

	DefaultJumpMotion = 0.42
	// JumpBoostBonus is the additional vertical speed granted on a jump while jump boost is active.
	JumpBoostBonus = 0.4
	NormalGravity  = 0.08
)
