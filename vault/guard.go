package vault

import "sync/atomic"

// reentrancyGuard 提现路径的互斥标记
// 同一时间只有一笔顶层交易在执行，进入失败只可能来自转账交接期间的嵌套调用
type reentrancyGuard struct {
	entered atomic.Bool
}

func (g *reentrancyGuard) enter() bool {
	return g.entered.CompareAndSwap(false, true)
}

func (g *reentrancyGuard) exit() {
	g.entered.Store(false)
}

func (g *reentrancyGuard) held() bool {
	return g.entered.Load()
}
