package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/taskboard/internal/database"
	"github.com/hitoshi/taskboard/internal/model"
)

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

// openTestDB はマイグレーション済みのインメモリSQLiteを返す。
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, repo *SQLUserRepo, email string) *model.UserCredential {
	t.Helper()

	user := &model.UserCredential{
		User: model.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      "User " + email,
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		},
		PasswordHash: "$2a$04$digest",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func seedProject(t *testing.T, repo *SQLProjectRepo, userID, name string, at time.Time) *model.Project {
	t.Helper()

	project := &model.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), project))
	return project
}

func seedTask(t *testing.T, repo *SQLTaskRepo, projectID, title string, at time.Time, finishDate *time.Time) *model.Task {
	t.Helper()

	task := &model.Task{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Title:      title,
		FinishDate: finishDate,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func strPtr(s string) *string { return &s }

func TestSQLUserRepo_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLUserRepo(db)
	ctx := context.Background()

	created := seedUser(t, repo, "a@example.com")

	byEmail, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, created.PasswordHash, byEmail.PasswordHash)
	assert.True(t, byEmail.CreatedAt.Equal(baseTime))

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "a@example.com", byID.Email)
	assert.Equal(t, created.Name, byID.Name)
}

func TestSQLUserRepo_NotFoundReturnsNil(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLUserRepo(db)
	ctx := context.Background()

	user, err := repo.FindByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, user)

	cred, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestSQLUserRepo_Create_DuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLUserRepo(db)

	seedUser(t, repo, "dup@example.com")

	err := repo.Create(context.Background(), &model.UserCredential{
		User: model.User{
			ID:        uuid.NewString(),
			Email:     "dup@example.com",
			Name:      "Second",
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		},
		PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSQLProjectRepo_ListByUserID_OwnedAndOrdered(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")

	second := seedProject(t, projects, alice.ID, "second", baseTime.Add(2*time.Minute))
	first := seedProject(t, projects, alice.ID, "first", baseTime.Add(time.Minute))
	seedProject(t, projects, bob.ID, "bob's", baseTime)

	got, err := projects.ListByUserID(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Nil(t, got[0].Description)

	empty, err := projects.ListByUserID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLProjectRepo_FindOwnedAndExists(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")
	p := seedProject(t, projects, alice.ID, "mine", baseTime)

	found, err := projects.FindOwned(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "mine", found.Name)

	other, err := projects.FindOwned(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, other)

	ok, err := projects.ExistsOwned(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = projects.ExistsOwned(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLProjectRepo_Update_Partial(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	p := seedProject(t, projects, alice.ID, "before", baseTime)
	later := baseTime.Add(time.Hour)

	updated, err := projects.Update(ctx, p.ID, alice.ID, model.ProjectPatch{Description: strPtr("notes")}, later)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "before", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "notes", *updated.Description)
	assert.True(t, updated.UpdatedAt.Equal(later))
	assert.True(t, updated.CreatedAt.Equal(baseTime))

	updated, err = projects.Update(ctx, p.ID, alice.ID, model.ProjectPatch{Name: strPtr("after")}, later)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "after", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "notes", *updated.Description)
}

func TestSQLProjectRepo_Update_NotOwned(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")
	p := seedProject(t, projects, alice.ID, "alice's", baseTime)

	updated, err := projects.Update(ctx, p.ID, bob.ID, model.ProjectPatch{Name: strPtr("hijacked")}, baseTime)
	require.NoError(t, err)
	assert.Nil(t, updated)

	unchanged, err := projects.FindOwned(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, unchanged)
	assert.Equal(t, "alice's", unchanged.Name)
}

func TestSQLProjectRepo_Delete_RemovesTasks(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	p := seedProject(t, projects, alice.ID, "doomed", baseTime)
	keep := seedProject(t, projects, alice.ID, "kept", baseTime)
	for i := 0; i < 3; i++ {
		seedTask(t, tasks, p.ID, "t", baseTime.Add(time.Duration(i)*time.Second), nil)
	}
	kept := seedTask(t, tasks, keep.ID, "k", baseTime, nil)

	deleted, err := projects.Delete(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	remaining, err := tasks.ListByProjectID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	others, err := tasks.ListByProjectID(ctx, keep.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, kept.ID, others[0].ID)
}

func TestSQLProjectRepo_Delete_NotOwnedKeepsEverything(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")
	p := seedProject(t, projects, alice.ID, "alice's", baseTime)
	seedTask(t, tasks, p.ID, "t", baseTime, nil)

	deleted, err := projects.Delete(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	remaining, err := tasks.ListByProjectID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSQLTaskRepo_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")
	p1 := seedProject(t, projects, alice.ID, "p1", baseTime)
	p2 := seedProject(t, projects, alice.ID, "p2", baseTime.Add(time.Second))
	pb := seedProject(t, projects, bob.ID, "pb", baseTime)

	due := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := seedTask(t, tasks, p2.ID, "later", baseTime.Add(2*time.Second), &due)
	t1 := seedTask(t, tasks, p1.ID, "earlier", baseTime.Add(time.Second), nil)
	seedTask(t, tasks, pb.ID, "bob's", baseTime, nil)

	byProject, err := tasks.ListByProjectID(ctx, p2.ID)
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "later", byProject[0].Title)
	require.NotNil(t, byProject[0].FinishDate)
	assert.True(t, byProject[0].FinishDate.Equal(due))
	assert.False(t, byProject[0].IsCompleted)

	byUser, err := tasks.ListByUserID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, t1.ID, byUser[0].ID)
	assert.Equal(t, t2.ID, byUser[1].ID)
	assert.Nil(t, byUser[0].FinishDate)
}

func TestSQLTaskRepo_FindOwned(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")
	p := seedProject(t, projects, alice.ID, "p", baseTime)
	task := seedTask(t, tasks, p.ID, "t", baseTime, nil)

	own, err := tasks.FindOwned(ctx, task.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, own)
	assert.Equal(t, task.ID, own.Task.ID)
	assert.Equal(t, p.ID, own.Project.ID)
	assert.Equal(t, alice.ID, own.Project.UserID)

	own, err = tasks.FindOwned(ctx, task.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, own)

	own, err = tasks.FindOwned(ctx, uuid.NewString(), alice.ID)
	require.NoError(t, err)
	assert.Nil(t, own)
}

func TestSQLTaskRepo_UpdateAndSetCompletion(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	p := seedProject(t, projects, alice.ID, "p", baseTime)
	task := seedTask(t, tasks, p.ID, "draft", baseTime, nil)
	later := baseTime.Add(time.Hour)
	due := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

	updated, err := tasks.Update(ctx, task.ID, model.TaskPatch{
		Title:      strPtr("final"),
		FinishDate: &due,
	}, later)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "final", updated.Title)
	assert.Nil(t, updated.Description)
	require.NotNil(t, updated.FinishDate)
	assert.True(t, updated.FinishDate.Equal(due))
	assert.True(t, updated.UpdatedAt.Equal(later))

	toggled, err := tasks.SetCompletion(ctx, task.ID, true, later)
	require.NoError(t, err)
	require.NotNil(t, toggled)
	assert.True(t, toggled.IsCompleted)
	assert.Equal(t, "final", toggled.Title)

	toggled, err = tasks.SetCompletion(ctx, task.ID, false, later)
	require.NoError(t, err)
	require.NotNil(t, toggled)
	assert.False(t, toggled.IsCompleted)

	missing, err := tasks.SetCompletion(ctx, uuid.NewString(), true, later)
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = tasks.Update(ctx, uuid.NewString(), model.TaskPatch{Title: strPtr("x")}, later)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLTaskRepo_Delete(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLUserRepo(db)
	projects := NewSQLProjectRepo(db)
	tasks := NewSQLTaskRepo(db)
	ctx := context.Background()

	alice := seedUser(t, users, "alice@example.com")
	p := seedProject(t, projects, alice.ID, "p", baseTime)
	task := seedTask(t, tasks, p.ID, "t", baseTime, nil)

	deleted, err := tasks.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = tasks.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
