// internal/services/progress_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTrackerReturnsExisting(t *testing.T) {
	svc := NewProgressService()

	first := svc.CreateTracker("task_1")
	second := svc.CreateTracker("task_1")

	assert.Same(t, first, second)

	got, ok := svc.GetTracker("task_1")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestGetTrackerUnknown(t *testing.T) {
	svc := NewProgressService()

	_, ok := svc.GetTracker("task_0")
	assert.False(t, ok)
}

func TestUpdateProgressNeverGoesBackwards(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	tracker.UpdateProgress(50, "过半")
	tracker.UpdateProgress(30, "回退的更新")

	snapshot := tracker.Snapshot()
	assert.Equal(t, 50, snapshot.Progress)
	assert.Equal(t, "回退的更新", snapshot.Message)
	assert.Equal(t, "running", snapshot.Status)
}

func TestSubscribeReceivesCurrentStateAndUpdates(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	sub := tracker.Subscribe()

	initial := <-sub
	assert.Equal(t, 0, initial.Progress)
	assert.Equal(t, "running", initial.Status)

	tracker.UpdateProgress(40, "处理中")

	update := <-sub
	assert.Equal(t, 40, update.Progress)
	assert.Equal(t, "处理中", update.Message)
}

func TestCompleteClosesDoneOnce(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	tracker.Complete("")
	// 二次 Complete 与后续 Fail 都不应再触发关闭
	tracker.Complete("重复完成")
	tracker.Fail("迟到的失败")

	select {
	case <-tracker.Done:
	case <-time.After(time.Second):
		t.Fatal("Done 通道应当已关闭")
	}

	snapshot := tracker.Snapshot()
	assert.Equal(t, 100, snapshot.Progress)
	assert.Equal(t, "任务已完成", snapshot.Message)
	assert.Equal(t, "completed", snapshot.Status)
}

func TestFailMarksTracker(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	tracker.UpdateProgress(30, "进行中")
	tracker.Fail("磁盘写入失败")

	snapshot := tracker.Snapshot()
	assert.Equal(t, "failed", snapshot.Status)
	assert.Equal(t, 30, snapshot.Progress)
	assert.Contains(t, snapshot.Message, "磁盘写入失败")

	select {
	case <-tracker.Done:
	default:
		t.Fatal("失败后 Done 通道应当已关闭")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	sub := tracker.Subscribe()
	<-sub

	tracker.Unsubscribe(sub)

	// 通道应当已关闭
	_, open := <-sub
	assert.False(t, open)

	// 再次取消订阅不应恐慌
	tracker.Unsubscribe(sub)

	tracker.UpdateProgress(60, "不再送达")
}

func TestSlowSubscriberDoesNotBlockUpdates(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task_1")

	sub := tracker.Subscribe()

	// 填满缓冲区后继续更新也不能阻塞
	for i := 1; i <= 20; i++ {
		tracker.UpdateProgress(i, "推进")
	}

	tracker.Complete("")

	select {
	case <-tracker.Done:
	case <-time.After(time.Second):
		t.Fatal("慢订阅者不应阻塞任务完成")
	}

	tracker.Unsubscribe(sub)
}

func TestCleanupCompletedTasks(t *testing.T) {
	svc := NewProgressService()

	finished := svc.CreateTracker("finished")
	finished.Complete("")

	running := svc.CreateTracker("running")
	running.UpdateProgress(10, "进行中")

	// maxAge 为 0，完成的任务立即可清理
	time.Sleep(time.Millisecond)
	svc.CleanupCompletedTasks(0)

	_, ok := svc.GetTracker("finished")
	assert.False(t, ok)

	_, ok = svc.GetTracker("running")
	assert.True(t, ok)
}
