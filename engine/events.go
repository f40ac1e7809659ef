package engine

import "fmt"

// Publisher is the realtime fanout surface. Publish is synchronous from the
// engine's point of view but must never block on slow consumers.
type Publisher interface {
	Publish(room string, payload any)
}

// Notifier is the asynchronous side channel for in-app notifications and
// email. Every method is fire-and-forget: the engine's commit is never
// contingent on it.
type Notifier interface {
	CreateNotification(userID uint, title, message string, taskID *uint, notifType string)
	TaskStatusUpdate(taskID uint, message string)
	NewTask(taskID uint)
}

// Room names shared with the websocket handlers.
const DashboardRoom = "dashboard:admin"

func TaskRoom(taskID uint) string {
	return fmt.Sprintf("task:%d", taskID)
}

func ClientRoom(userID uint) string {
	return fmt.Sprintf("client:%d", userID)
}
