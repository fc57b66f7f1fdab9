package project

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/taskboard/internal/model"
)

// --- モック ---

type recordingCollector struct {
	mu        sync.Mutex
	mutations map[string]int
}

func (c *recordingCollector) RecordAuthEvent(string, string)  {}
func (c *recordingCollector) RecordHTTPStatus(int)            {}
func (c *recordingCollector) RecordHTTPLatency(time.Duration) {}

func (c *recordingCollector) RecordTaskMutation(op, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mutations == nil {
		c.mutations = make(map[string]int)
	}
	c.mutations[op+"/"+outcome]++
}

func (c *recordingCollector) count(op, outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutations[op+"/"+outcome]
}

type mockProjectRepo struct {
	listByUserIDFn func(ctx context.Context, userID string) ([]model.Project, error)
	existsOwnedFn  func(ctx context.Context, projectID, userID string) (bool, error)
	deleteFn       func(ctx context.Context, projectID, userID string) (bool, error)
}

func (m *mockProjectRepo) ListByUserID(ctx context.Context, userID string) ([]model.Project, error) {
	return m.listByUserIDFn(ctx, userID)
}
func (m *mockProjectRepo) FindOwned(ctx context.Context, projectID, userID string) (*model.Project, error) {
	return nil, nil
}
func (m *mockProjectRepo) ExistsOwned(ctx context.Context, projectID, userID string) (bool, error) {
	return m.existsOwnedFn(ctx, projectID, userID)
}
func (m *mockProjectRepo) Create(ctx context.Context, project *model.Project) error {
	return nil
}
func (m *mockProjectRepo) Update(ctx context.Context, projectID, userID string, patch model.ProjectPatch, updatedAt time.Time) (*model.Project, error) {
	return nil, nil
}
func (m *mockProjectRepo) Delete(ctx context.Context, projectID, userID string) (bool, error) {
	return m.deleteFn(ctx, projectID, userID)
}

type mockTaskRepo struct {
	listByUserIDFn func(ctx context.Context, userID string) ([]model.Task, error)
	findOwnedFn    func(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error)
	createFn       func(ctx context.Context, task *model.Task) error
}

func (m *mockTaskRepo) ListByProjectID(ctx context.Context, projectID string) ([]model.Task, error) {
	return []model.Task{}, nil
}
func (m *mockTaskRepo) ListByUserID(ctx context.Context, userID string) ([]model.Task, error) {
	return m.listByUserIDFn(ctx, userID)
}
func (m *mockTaskRepo) FindOwned(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error) {
	return m.findOwnedFn(ctx, taskID, userID)
}
func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	return m.createFn(ctx, task)
}
func (m *mockTaskRepo) Update(ctx context.Context, taskID string, patch model.TaskPatch, updatedAt time.Time) (*model.Task, error) {
	return nil, nil
}
func (m *mockTaskRepo) SetCompletion(ctx context.Context, taskID string, completed bool, updatedAt time.Time) (*model.Task, error) {
	return nil, nil
}
func (m *mockTaskRepo) Delete(ctx context.Context, taskID string) (bool, error) {
	return false, nil
}

var errStore = errors.New("connection reset")

// TestStoreFailure_IsNotClientError はストア障害がクライアントエラーの種別を持たずに伝播することを検証する。
func TestStoreFailure_IsNotClientError(t *testing.T) {
	rec := &recordingCollector{}
	svc := NewService(
		&mockProjectRepo{
			listByUserIDFn: func(ctx context.Context, userID string) ([]model.Project, error) {
				return nil, errStore
			},
			existsOwnedFn: func(ctx context.Context, projectID, userID string) (bool, error) {
				return true, nil
			},
			deleteFn: func(ctx context.Context, projectID, userID string) (bool, error) {
				return false, errStore
			},
		},
		&mockTaskRepo{
			findOwnedFn: func(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error) {
				return nil, errStore
			},
			createFn: func(ctx context.Context, task *model.Task) error {
				return errStore
			},
		},
		rec,
	)
	ctx := context.Background()

	_, err := svc.ListProjectsWithTasks(ctx, "u1")
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, model.ErrorKind(""), model.KindOf(err))

	err = svc.DeleteProject(ctx, "u1", "p1")
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, model.ErrorKind(""), model.KindOf(err))

	_, err = svc.CreateOwnedTask(ctx, "u1", "p1", TaskInput{Title: "t"})
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, 1, rec.count(OpCreate, "error"))

	_, err = svc.SetOwnedTaskCompletion(ctx, "u1", "p1", "t1", true)
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, 1, rec.count(OpToggle, "error"))
}

func TestListProjectsWithTasks_TaskListFailure(t *testing.T) {
	svc := NewService(
		&mockProjectRepo{
			listByUserIDFn: func(ctx context.Context, userID string) ([]model.Project, error) {
				return []model.Project{{ID: "p1", UserID: userID}}, nil
			},
		},
		&mockTaskRepo{
			listByUserIDFn: func(ctx context.Context, userID string) ([]model.Task, error) {
				return nil, errStore
			},
		},
		nil,
	)

	_, err := svc.ListProjectsWithTasks(context.Background(), "u1")
	assert.ErrorIs(t, err, errStore)
}

// TestCreateTask_NormalizesFinishDateToUTC は期限がUTCで保存されることを検証する。
func TestCreateTask_NormalizesFinishDateToUTC(t *testing.T) {
	var stored *model.Task
	svc := NewService(&mockProjectRepo{}, &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			stored = task
			return nil
		},
	}, nil)
	svc.now = func() time.Time { return testNow }

	jst := time.FixedZone("JST", 9*60*60)
	due := time.Date(2027, 1, 1, 9, 0, 0, 0, jst)

	task, err := svc.CreateTask(context.Background(), "p1", TaskInput{Title: "t", FinishDate: &due})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Same(t, stored, task)
	assert.Equal(t, time.UTC, task.FinishDate.Location())
	assert.True(t, task.FinishDate.Equal(due))
	assert.True(t, task.CreatedAt.Equal(testNow))
}
