// Package registration 项目登记: 校验发射时间窗口后以登记模块身份发起募资
package registration

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
)

// Launcher 募资发起方
type Launcher interface {
	LaunchToken(ctx context.Context, caller common.Address, p engine.LaunchParams) (uint64, error)
}

// Window 登记窗口参数
type Window struct {
	MinTimeToLaunch time.Duration
	MaxTimeToLaunch time.Duration
	SoftCapTimer    time.Duration
}

// DefaultWindow 最早 24 小时后, 最晚 7 天内发射, 募资期 24 小时
func DefaultWindow() Window {
	return Window{
		MinTimeToLaunch: 24 * time.Hour,
		MaxTimeToLaunch: 7 * 24 * time.Hour,
		SoftCapTimer:    24 * time.Hour,
	}
}

// Project 登记请求
type Project struct {
	Info         string
	LaunchTime   time.Time
	SoftCap      *big.Int
	HardCap      *big.Int
	FixedRateWad *big.Int
	Name         string
	Symbol       string
}

// Registration 登记模块
type Registration struct {
	mu       sync.Mutex
	owner    common.Address
	self     common.Address
	launcher Launcher
	clock    clock.Clock
	window   Window
	limits   engine.Limits
	info     map[uint64]string
}

// New 创建登记模块, self 为其在协议中的地址
func New(owner, self common.Address, launcher Launcher, clk clock.Clock, w Window) *Registration {
	if clk == nil {
		clk = clock.New()
	}
	return &Registration{
		owner:    owner,
		self:     self,
		launcher: launcher,
		clock:    clk,
		window:   w,
		limits:   engine.DefaultLimits(),
		info:     make(map[uint64]string),
	}
}

// RegisterProject 登记项目, 调用方成为项目方
func (r *Registration) RegisterProject(ctx context.Context, caller common.Address, p Project) (uint64, error) {
	w := r.Window()
	now := r.clock.Now()

	if p.LaunchTime.Before(now.Add(w.MinTimeToLaunch)) {
		return 0, liftoff.Invalid("not allowed to launch before min launch time")
	}
	if p.LaunchTime.After(now.Add(w.MaxTimeToLaunch)) {
		return 0, liftoff.Invalid("not allowed to launch after max launch time")
	}
	if p.SoftCap == nil || p.SoftCap.Cmp(r.limits.MinSoftCap) < 0 {
		return 0, liftoff.Invalid(fmt.Sprintf("cannot launch if softcap is less than %s", wad.Format(r.limits.MinSoftCap)))
	}
	if p.FixedRateWad == nil || p.FixedRateWad.Cmp(r.limits.MinRate) < 0 {
		return 0, liftoff.Invalid("fixed rate is less than minimum")
	}
	if p.FixedRateWad.Cmp(r.limits.MaxRate) > 0 {
		return 0, liftoff.Invalid("fixed rate is more than maximum")
	}

	id, err := r.launcher.LaunchToken(ctx, r.self, engine.LaunchParams{
		StartTime:    p.LaunchTime,
		EndTime:      p.LaunchTime.Add(w.SoftCapTimer),
		SoftCap:      p.SoftCap,
		HardCap:      p.HardCap,
		FixedRateWad: p.FixedRateWad,
		Name:         p.Name,
		Symbol:       p.Symbol,
		ProjectDev:   caller,
	})
	if err != nil {
		return 0, fmt.Errorf("register project: %w", err)
	}

	r.mu.Lock()
	r.info[id] = p.Info
	r.mu.Unlock()

	logger.Info("Project registered by %s as raise %d, launching %s", caller.Hex(), id, p.LaunchTime.Format(time.RFC3339))
	return id, nil
}

// Info 项目描述(如 IPFS 哈希)
func (r *Registration) Info(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.info[id]
	return s, ok
}

// Window 当前登记窗口
func (r *Registration) Window() Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window
}

// SetWindow 调整登记窗口, 仅 owner
func (r *Registration) SetWindow(caller common.Address, w Window) error {
	if caller != r.owner {
		return liftoff.ErrNotOwner
	}
	if w.MinTimeToLaunch < 0 || w.MaxTimeToLaunch < w.MinTimeToLaunch || w.SoftCapTimer <= 0 {
		return liftoff.Invalid("registration window is malformed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.window = w
	logger.Info("Registration window set: min %s, max %s, soft cap timer %s", w.MinTimeToLaunch, w.MaxTimeToLaunch, w.SoftCapTimer)
	return nil
}
