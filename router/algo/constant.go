package algo

import (
	"errors"
	"math"
)

const (
	// 未到达的时间
	INF_TIME = int32(math.MaxInt32)
	// 无效的label/trip下标
	NO_INDEX = -1

	// 默认最大轮数
	DEFAULT_MAX_ROUNDS = 5
)

// 非计划移动方式
type Mode int8

const (
	MODE_UNSPECIFIED Mode = iota
	MODE_WALK
	MODE_BIKE
)

func (m Mode) String() string {
	switch m {
	case MODE_WALK:
		return "walk"
	case MODE_BIKE:
		return "bike"
	default:
		return "unspecified"
	}
}

// ParseMode accepts the lower-case names produced by String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "walk", "WALK":
		return MODE_WALK, true
	case "bike", "BIKE":
		return MODE_BIKE, true
	default:
		return MODE_UNSPECIFIED, false
	}
}

// label前驱类型
type LegKind int8

const (
	LEG_ORIGIN LegKind = iota
	LEG_RIDE
	LEG_TRANSFER
	// 从起点坐标到车站
	LEG_ACCESS
	// 从车站到终点坐标，只出现在行程中
	LEG_EGRESS
)

var (
	// 错误：回溯时发现环或者悬空的前驱
	ErrReconstruction = errors.New("journey reconstruction failed")
)
