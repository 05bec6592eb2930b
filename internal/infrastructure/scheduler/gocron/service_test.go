package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	scheduler "github.com/ark-network/lottery/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc := scheduler.NewScheduler()
		var runs atomic.Int32

		err := svc.ScheduleTask(1, true, func() { runs.Add(1) })
		require.NoError(t, err)

		svc.Start()
		defer svc.Stop()

		require.Eventually(t, func() bool {
			return runs.Load() > 0
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("invalid", func(t *testing.T) {
		svc := scheduler.NewScheduler()
		err := svc.ScheduleTask(0, true, func() {})
		require.Error(t, err)
	})
}
