package core

import (
	"sync"
)

const (
	// AVG_COUNT avoid running average on values that are too far apart
	AVG_COUNT int = 30
)

type MetricsState struct {
	FrameAVGCounter   int
	MSTimes           [AVG_COUNT]float64
	MSAvg             float64
	Frames            int
	AccumulatedFrames float64
	FPS               float64
}

var (
	onceMetrics  sync.Once
	metricsState *MetricsState
)

func MetricsInitialize() {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
}

// MetricsUpdate feeds one frame of elapsed seconds into the running averages.
func MetricsUpdate(frameElapsedTime float64) {
	if metricsState == nil {
		return
	}

	frameMS := frameElapsedTime * 1000.0
	metricsState.MSTimes[metricsState.FrameAVGCounter] = frameMS
	if metricsState.FrameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := 0; i < AVG_COUNT; i++ {
			sum += metricsState.MSTimes[i]
		}
		metricsState.MSAvg = sum / float64(AVG_COUNT)
	}
	metricsState.FrameAVGCounter++
	metricsState.FrameAVGCounter %= AVG_COUNT

	metricsState.Frames++
	metricsState.AccumulatedFrames += frameElapsedTime
	if metricsState.AccumulatedFrames > 1 {
		metricsState.FPS = float64(metricsState.Frames) / metricsState.AccumulatedFrames
		metricsState.Frames = 0
		metricsState.AccumulatedFrames = 0
	}
}

func MetricsFPS() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.MSAvg
}
