package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

type published struct {
	room    string
	payload any
}

type fakeHub struct {
	mu     sync.Mutex
	events []published
}

func (h *fakeHub) Publish(room string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{room: room, payload: payload})
}

func (h *fakeHub) byRoom(room string) []published {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []published
	for _, ev := range h.events {
		if ev.room == room {
			out = append(out, ev)
		}
	}
	return out
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications int
	statusUpdates int
	newTasks      int
}

func (n *fakeNotifier) CreateNotification(uint, string, string, *uint, string) {
	n.mu.Lock()
	n.notifications++
	n.mu.Unlock()
}

func (n *fakeNotifier) TaskStatusUpdate(uint, string) {
	n.mu.Lock()
	n.statusUpdates++
	n.mu.Unlock()
}

func (n *fakeNotifier) NewTask(uint) {
	n.mu.Lock()
	n.newTasks++
	n.mu.Unlock()
}

var testDBSeq int

type testEnv struct {
	db       *gorm.DB
	engine   *Engine
	hub      *fakeHub
	notifier *fakeNotifier

	client policy.Actor
	admin  policy.Actor
}

func setupEngine(t *testing.T) *testEnv {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:engine_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Task{}, &models.TaskCategory{}, &models.TaskFile{},
		&models.Revision{}, &models.ChatMessage{}, &models.BudgetProposal{}, &models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := models.User{Username: "student", Email: "student@example.com", Role: constants.RoleClient, IsActive: true}
	admin := models.User{Username: "expert", Email: "expert@example.com", Role: constants.RoleAdmin, IsActive: true}
	for _, u := range []*models.User{&client, &admin} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	hub := &fakeHub{}
	notifier := &fakeNotifier{}
	eng := New(db, hub, notifier, 48*time.Hour)

	return &testEnv{
		db:       db,
		engine:   eng,
		hub:      hub,
		notifier: notifier,
		client:   policy.Actor{ID: client.ID, Username: client.Username, Role: client.Role},
		admin:    policy.Actor{ID: admin.ID, Username: admin.Username, Role: admin.Role},
	}
}

func (env *testEnv) mustCreate(t *testing.T, budget float64) *models.Task {
	t.Helper()
	task, err := env.engine.CreateTask(env.client, CreateTaskInput{
		Title:          "Essay on distributed consensus",
		Description:    "2000 words, sources included",
		Subject:        "Computer Science",
		ProposedBudget: budget,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTask_MintsDisplayIDAndDeadline(t *testing.T) {
	env := setupEngine(t)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	env.engine.SetClock(func() time.Time { return t0 })

	task := env.mustCreate(t, 500)
	want := fmt.Sprintf("TSK%04d", task.ID)
	if task.TaskID != want {
		t.Errorf("task_id = %q, want %q", task.TaskID, want)
	}
	if task.Status != constants.TaskStatusSubmitted || task.NegotiationStatus != constants.NegotiationNone {
		t.Errorf("fresh task state = (%s, %s)", task.Status, task.NegotiationStatus)
	}
	if task.WithdrawalDeadline == nil || !task.WithdrawalDeadline.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("withdrawal_deadline = %v, want %v", task.WithdrawalDeadline, t0.Add(48*time.Hour))
	}

	created := env.hub.byRoom(DashboardRoom)
	if len(created) != 1 {
		t.Fatalf("dashboard events = %d, want 1", len(created))
	}
	if env.notifier.newTasks != 1 {
		t.Errorf("new task notifications = %d, want 1", env.notifier.newTasks)
	}
}

func TestAcceptTask_AssignsAdminAndStartsWork(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	got, err := env.engine.AcceptTask(env.admin, task.ID)
	if err != nil {
		t.Fatalf("accept task: %v", err)
	}
	if got.Status != constants.TaskStatusInProgress {
		t.Errorf("status = %s", got.Status)
	}
	if got.AssignedAdminID == nil || *got.AssignedAdminID != env.admin.ID {
		t.Errorf("assigned_admin_id = %v", got.AssignedAdminID)
	}
	if got.AcceptedAt == nil {
		t.Error("accepted_at not set")
	}
	if got.Progress != 5 {
		t.Errorf("progress = %d, want 5", got.Progress)
	}

	// Not acceptable a second time from in_progress.
	if _, err := env.engine.AcceptTask(env.admin, task.ID); err == nil {
		t.Error("expected state conflict accepting an in-progress task")
	}
}

func TestAcceptTask_RequiresAdminRole(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	_, err := env.engine.AcceptTask(env.client, task.ID)
	var authz *AuthorizationError
	if !asError(err, &authz) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
}

func TestThreeRoundNegotiation_AcceptsLatestClientCounter(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, _, err := env.engine.ProposeBudget(env.admin, task.ID, 900, "scope is larger"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := env.engine.ClientCounterBudget(env.client, task.ID, 700, "meet in the middle"); err != nil {
		t.Fatalf("counter: %v", err)
	}
	got, err := env.engine.AcceptBudget(env.admin, task.ID)
	if err != nil {
		t.Fatalf("accept budget: %v", err)
	}

	if got.Budget == nil || *got.Budget != 700 {
		t.Fatalf("budget = %v, want 700", got.Budget)
	}
	if got.AcceptedBudgetSource != constants.BudgetSourceClient {
		t.Errorf("accepted_budget_source = %q, want client", got.AcceptedBudgetSource)
	}
	if got.NegotiationStatus != constants.NegotiationAccepted || got.Status != constants.TaskStatusInProgress {
		t.Errorf("state = (%s, %s)", got.Status, got.NegotiationStatus)
	}
}

func TestAcceptBudget_FallsBackToAdminCounterThenProposed(t *testing.T) {
	env := setupEngine(t)

	// No counter yet: admin accepts the client's original proposal.
	task := env.mustCreate(t, 500)
	got, err := env.engine.AcceptBudget(env.admin, task.ID)
	if err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	if got.Budget == nil || *got.Budget != 500 {
		t.Fatalf("budget = %v, want 500", got.Budget)
	}

	// Admin countered, client never replied: the counter stands.
	task2 := env.mustCreate(t, 500)
	if _, _, err := env.engine.ProposeBudget(env.admin, task2.ID, 900, ""); err != nil {
		t.Fatalf("propose: %v", err)
	}
	got2, err := env.engine.AcceptBudget(env.admin, task2.ID)
	if err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	if got2.Budget == nil || *got2.Budget != 900 {
		t.Fatalf("budget = %v, want 900", got2.Budget)
	}
	if got2.AcceptedBudgetSource != constants.BudgetSourceAdmin {
		t.Errorf("accepted_budget_source = %q, want admin", got2.AcceptedBudgetSource)
	}
}

func TestAcceptBudget_NoAmountAvailable(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 0)

	_, err := env.engine.AcceptBudget(env.admin, task.ID)
	var conflict *StateConflictError
	if !asError(err, &conflict) {
		t.Fatalf("err = %v, want StateConflictError", err)
	}
}

func TestClientAcceptBudget_TakesAdminCounter(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	// Nothing to accept before an admin counter exists.
	if _, err := env.engine.ClientAcceptBudget(env.client, task.ID); err == nil {
		t.Fatal("expected conflict with no counter offer")
	}

	if _, _, err := env.engine.ProposeBudget(env.admin, task.ID, 900, ""); err != nil {
		t.Fatalf("propose: %v", err)
	}
	got, err := env.engine.ClientAcceptBudget(env.client, task.ID)
	if err != nil {
		t.Fatalf("client accept: %v", err)
	}
	if got.Budget == nil || *got.Budget != 900 {
		t.Fatalf("budget = %v, want 900", got.Budget)
	}
	if got.Status != constants.TaskStatusInProgress || got.NegotiationStatus != constants.NegotiationAccepted {
		t.Errorf("state = (%s, %s)", got.Status, got.NegotiationStatus)
	}
}

func TestClientRejectBudget_Terminal(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, _, err := env.engine.ProposeBudget(env.admin, task.ID, 900, ""); err != nil {
		t.Fatalf("propose: %v", err)
	}
	got, err := env.engine.ClientRejectBudget(env.client, task.ID)
	if err != nil {
		t.Fatalf("reject budget: %v", err)
	}
	if got.Status != constants.TaskStatusBudgetRejected || got.NegotiationStatus != constants.NegotiationRejected {
		t.Errorf("state = (%s, %s)", got.Status, got.NegotiationStatus)
	}
	if got.Budget != nil {
		t.Errorf("budget = %v, want nil", got.Budget)
	}

	// Terminal: nothing else applies.
	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err == nil {
		t.Error("expected conflict accepting budget after rejection")
	}
}

func TestClientWithdraw_DeadlineEdge(t *testing.T) {
	env := setupEngine(t)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	env.engine.SetClock(func() time.Time { return t0 })

	// In progress, one hour before the deadline: allowed.
	task := env.mustCreate(t, 500)
	if _, err := env.engine.AcceptTask(env.admin, task.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	env.engine.SetClock(func() time.Time { return t0.Add(47 * time.Hour) })
	if _, err := env.engine.ClientWithdraw(env.client, task.ID, "changed my mind"); err != nil {
		t.Fatalf("withdraw before deadline: %v", err)
	}

	// One second past the deadline: state conflict.
	env.engine.SetClock(func() time.Time { return t0 })
	task2 := env.mustCreate(t, 500)
	if _, err := env.engine.AcceptTask(env.admin, task2.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	env.engine.SetClock(func() time.Time { return t0.Add(48*time.Hour + time.Second) })
	_, err := env.engine.ClientWithdraw(env.client, task2.ID, "too late")
	var conflict *StateConflictError
	if !asError(err, &conflict) {
		t.Fatalf("err = %v, want StateConflictError", err)
	}

	// Still submitted: withdrawable regardless of the clock.
	task3 := env.mustCreate(t, 500)
	got, err := env.engine.ClientWithdraw(env.client, task3.ID, "no longer needed")
	if err != nil {
		t.Fatalf("withdraw submitted task: %v", err)
	}
	if got.Status != constants.TaskStatusWithdrawn || got.WithdrawalReason != "no longer needed" {
		t.Errorf("state = %s reason = %q", got.Status, got.WithdrawalReason)
	}
}

func TestRejectTask_RejectedAtIsWriteOnce(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	env.engine.SetClock(func() time.Time { return t0 })

	first, err := env.engine.RejectTask(env.admin, task.ID, "out of scope")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if first.RejectedAt == nil || !first.RejectedAt.Equal(t0) {
		t.Fatalf("rejected_at = %v, want %v", first.RejectedAt, t0)
	}
	if first.AssignedAdminID != nil {
		t.Error("assigned admin not cleared on rejection")
	}

	env.engine.SetClock(func() time.Time { return t0.Add(time.Hour) })
	second, err := env.engine.RejectTask(env.admin, task.ID, "still out of scope")
	if err != nil {
		t.Fatalf("second reject: %v", err)
	}
	if !second.RejectedAt.Equal(t0) {
		t.Errorf("rejected_at moved to %v on repeat rejection", second.RejectedAt)
	}
}

func TestRejectTask_RequiresReason(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	_, err := env.engine.RejectTask(env.admin, task.ID, "   ")
	var validation *ValidationError
	if !asError(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestMarkComplete_NoDoubleCredit(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	if _, err := env.engine.MarkComplete(env.admin, task.ID); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	_, err := env.engine.MarkComplete(env.admin, task.ID)
	var conflict *StateConflictError
	if !asError(err, &conflict) {
		t.Fatalf("second mark complete err = %v, want StateConflictError", err)
	}

	var admin models.User
	if err := env.db.First(&admin, env.admin.ID).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if admin.CompletedTasks != 1 {
		t.Errorf("completed_tasks = %d, want 1", admin.CompletedTasks)
	}
	if admin.Earnings != 500 {
		t.Errorf("earnings = %v, want 500", admin.Earnings)
	}
}

func TestClientApprove_CreditsAdminOnce(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	if _, err := env.engine.SubmitForReview(env.admin, task.ID); err != nil {
		t.Fatalf("submit review: %v", err)
	}
	got, err := env.engine.ClientApprove(env.client, task.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != constants.TaskStatusCompleted || got.CompletedAt == nil {
		t.Errorf("state = %s completed_at = %v", got.Status, got.CompletedAt)
	}

	if _, err := env.engine.ClientApprove(env.client, task.ID); err == nil {
		t.Error("expected conflict approving a completed task")
	}

	var admin models.User
	if err := env.db.First(&admin, env.admin.ID).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if admin.CompletedTasks != 1 || admin.Earnings != 500 {
		t.Errorf("admin stats = (%d, %v), want (1, 500)", admin.CompletedTasks, admin.Earnings)
	}
}

func TestRequestRevision_CreatesRecordAndNote(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	if _, err := env.engine.SubmitForReview(env.admin, task.ID); err != nil {
		t.Fatalf("submit review: %v", err)
	}

	got, revision, err := env.engine.ClientRequestRevision(env.client, task.ID, "please expand section 2")
	if err != nil {
		t.Fatalf("request revision: %v", err)
	}
	if got.Status != constants.TaskStatusRevisionRequested {
		t.Errorf("status = %s", got.Status)
	}
	if revision.Feedback != "please expand section 2" || revision.Status != constants.RevisionRequested {
		t.Errorf("revision = %+v", revision)
	}

	// Back through review after the revision.
	if _, err := env.engine.SubmitForReview(env.admin, task.ID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestUpdateProgress_ClampsAndRequiresAssignment(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	p := 150
	_, err := env.engine.UpdateProgress(env.admin, task.ID, &p, "")
	var authz *AuthorizationError
	if !asError(err, &authz) {
		t.Fatalf("unassigned update err = %v, want AuthorizationError", err)
	}

	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	got, err := env.engine.UpdateProgress(env.admin, task.ID, &p, "nearly done")
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want clamp to 100", got.Progress)
	}

	var notes []models.ChatMessage
	if err := env.db.Where("task_id = ?", task.ID).Find(&notes).Error; err != nil {
		t.Fatalf("load notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("chat notes = %d, want 1", len(notes))
	}
}

func TestUploadSolution_ForcesReview(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, err := env.engine.AcceptBudget(env.admin, task.ID); err != nil {
		t.Fatalf("accept budget: %v", err)
	}
	got, err := env.engine.UploadSolution(env.admin, task.ID, SolutionFile{
		Name: "solution.pdf", FileType: "pdf", Size: "0.52 MB", Path: "uploads/task-1/solution.pdf",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got.Status != constants.TaskStatusAwaitingReview || got.Progress != 100 {
		t.Errorf("state = (%s, %d)", got.Status, got.Progress)
	}
	if len(got.Files) != 1 {
		t.Errorf("files = %d, want 1", len(got.Files))
	}

	// Not uploadable once awaiting review is reached via approval.
	if _, err := env.engine.ClientApprove(env.client, task.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.engine.UploadSolution(env.admin, task.ID, SolutionFile{Name: "v2.pdf"}); err == nil {
		t.Error("expected conflict uploading to a completed task")
	}
}

func TestNoBroadcastOnFailedAction(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	before := len(env.hub.byRoom(TaskRoom(task.ID)))
	if _, err := env.engine.ClientApprove(env.client, task.ID); err == nil {
		t.Fatal("expected approve to fail from submitted")
	}
	after := len(env.hub.byRoom(TaskRoom(task.ID)))
	if before != after {
		t.Errorf("failed action published %d events", after-before)
	}
}

// The published payload always carries the full current representation: after
// any action, replacing local state with the broadcast task must equal a
// direct re-fetch.
func TestBroadcastMatchesFreshFetch(t *testing.T) {
	env := setupEngine(t)
	task := env.mustCreate(t, 500)

	if _, _, err := env.engine.ProposeBudget(env.admin, task.ID, 900, "scope"); err != nil {
		t.Fatalf("propose: %v", err)
	}

	events := env.hub.byRoom(TaskRoom(task.ID))
	if len(events) == 0 {
		t.Fatal("no task room events")
	}
	payload, ok := events[len(events)-1].payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", events[len(events)-1].payload)
	}
	broadcast, ok := payload["task"].(*models.Task)
	if !ok {
		t.Fatalf("task payload type %T", payload["task"])
	}

	fresh, err := env.engine.Reload(task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !jsonEqual(t, broadcast, fresh) {
		t.Error("broadcast task diverges from fresh fetch")
	}
}

// Invariant: budget is non-nil iff negotiation_status == accepted, after
// every committed transition of a randomized valid action sequence.
func TestBudgetAcceptedInvariant_RandomSequences(t *testing.T) {
	env := setupEngine(t)
	rng := rand.New(rand.NewSource(7))

	actions := []func(taskID uint) error{
		func(id uint) error { _, err := env.engine.AcceptTask(env.admin, id); return err },
		func(id uint) error { _, _, err := env.engine.ProposeBudget(env.admin, id, 900, ""); return err },
		func(id uint) error { _, err := env.engine.AcceptBudget(env.admin, id); return err },
		func(id uint) error { _, err := env.engine.ClientAcceptBudget(env.client, id); return err },
		func(id uint) error { _, err := env.engine.ClientCounterBudget(env.client, id, 700, ""); return err },
		func(id uint) error { _, err := env.engine.ClientRejectBudget(env.client, id); return err },
		func(id uint) error { _, err := env.engine.ClientWithdraw(env.client, id, "x"); return err },
		func(id uint) error { _, err := env.engine.ClientApprove(env.client, id); return err },
		func(id uint) error { _, _, err := env.engine.ClientRequestRevision(env.client, id, "more"); return err },
		func(id uint) error { _, err := env.engine.SubmitForReview(env.admin, id); return err },
		func(id uint) error { _, err := env.engine.MarkComplete(env.admin, id); return err },
		func(id uint) error { _, err := env.engine.RejectTask(env.admin, id, "nope"); return err },
	}

	for run := 0; run < 20; run++ {
		task := env.mustCreate(t, 500)
		for step := 0; step < 15; step++ {
			_ = actions[rng.Intn(len(actions))](task.ID)

			var current models.Task
			if err := env.db.First(&current, task.ID).Error; err != nil {
				t.Fatalf("load task: %v", err)
			}
			hasBudget := current.Budget != nil
			accepted := current.NegotiationStatus == constants.NegotiationAccepted
			if hasBudget != accepted {
				t.Fatalf("run %d step %d: budget set = %v but negotiation_status = %q (status %q)",
					run, step, hasBudget, current.NegotiationStatus, current.Status)
			}
			if assignedRequired(current.Status) && current.AssignedAdminID == nil {
				t.Fatalf("run %d step %d: status %q with no assigned admin", run, step, current.Status)
			}
		}
	}
}

func assignedRequired(status string) bool {
	switch status {
	case constants.TaskStatusInProgress, constants.TaskStatusAwaitingReview,
		constants.TaskStatusRevisionRequested, constants.TaskStatusCompleted:
		return true
	}
	return false
}
