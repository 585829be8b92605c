package router

import (
	"errors"
	"math"

	"git.fiblab.net/sim/raptor/router/algo"
)

const (
	// 车站间步行换乘的搜索半径（m）
	MAX_WALK_TRANSFER_DISTANCE = 300
	// 步行换乘速度（m/s），即80m/min
	WALK_TRANSFER_SPEED = 80.0 / 60
	// 步行换乘时间上下限（s）
	MIN_WALK_TRANSFER_TIME = 2 * 60
	MAX_WALK_TRANSFER_TIME = 8 * 60
	// 步行速度（m/s），4.5km/h，用于到达/离开单车站点
	WALK_SPEED = 4.5 / 3.6
	// 骑行速度（m/s）
	BIKE_SPEED = 12 / 3.6
	// 单次骑行最长时间（s）
	MAX_BIKE_TIME = 20 * 60
	// 借车还车时间（s）
	BIKE_RENTAL_TIME = 2 * 60
	// 起终点坐标到车站的最长步行时间（s）
	MAX_ACCESS_WALK_TIME = 15 * 60
	// 车站到单车站点的最大步行距离（m）
	MAX_DOCK_ACCESS_DISTANCE = 500
	// 空间网格大小（度）
	GRID_SIZE = 0.001
	// 每纬度的长度（m）
	METERS_PER_DEGREE = algo.EARTH_RADIUS * math.Pi / 180
)

var (
	// 错误：构建时发现数据不合法
	ErrDataIntegrity = errors.New("data integrity violation")
	// 错误：查询中的车站不存在
	ErrNotFound = errors.New("not found")
	// 错误：查询参数不合法
	ErrInvalidQuery = errors.New("invalid query")
	// 错误：回溯行程失败，说明算法实现有误
	ErrReconstruction = algo.ErrReconstruction
)
