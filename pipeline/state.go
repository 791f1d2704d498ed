package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ByLCY/memegen/failure"
	"github.com/ByLCY/memegen/handle"
)

// State 是一次合成调用所处的阶段。
type State int

const (
	Idle State = iota
	Loading
	Rendering
	Exporting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendering:
		return "rendering"
	case Exporting:
		return "exporting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal 报告状态是否为终态。
func (s State) Terminal() bool { return s == Succeeded || s == Failed }

// invocation 记录一次调用的结果，是截止时间竞争的唯一裁决者：
// 先到达终态的一方获胜，之后的任何结算都会被拒绝。
type invocation struct {
	mu     sync.Mutex
	state  State
	handle handle.Handle
	err    error
	done   chan struct{}
	notify func(State)
}

func newInvocation(notify func(State)) *invocation {
	return &invocation{state: Idle, done: make(chan struct{}), notify: notify}
}

// advance 推进到非终态 next；调用已结束时返回 false。
func (inv *invocation) advance(next State) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state.Terminal() {
		return false
	}
	inv.state = next
	inv.emit(next)
	return true
}

// finish 结算调用。err 为 nil 时进入 Succeeded，否则进入 Failed。
// 调用已结束时返回 false，结果被丢弃。
func (inv *invocation) finish(h handle.Handle, err error) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state.Terminal() {
		return false
	}
	if err != nil {
		inv.state, inv.err = Failed, err
	} else {
		inv.state, inv.handle = Succeeded, h
	}
	close(inv.done)
	inv.emit(inv.state)
	return true
}

// 回调在锁内执行，保证观察到的迁移顺序与实际一致。
func (inv *invocation) emit(s State) {
	if inv.notify != nil {
		inv.notify(s)
	}
}

func (inv *invocation) current() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

func (inv *invocation) result() (handle.Handle, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.handle, inv.err
}

// contextFailure 把调用方 ctx 的结束原因映射为失败：截止时间到期视为超时。
func contextFailure(ctx context.Context, stage State, budget time.Duration) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return &failure.TimeoutError{Stage: stage.String(), After: budget}
	}
	return err
}
