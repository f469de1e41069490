package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	code := testutil.UniqueCode("course")
	c, err := repo.UpsertByCode(dbc, &types.Course{Code: code, Title: "Intro", Status: types.CourseStatusDraft})
	if err != nil || c.ID == uuid.Nil {
		t.Fatalf("UpsertByCode create: err=%v", err)
	}
	again, err := repo.UpsertByCode(dbc, &types.Course{Code: code, Title: "Intro v2", Status: types.CourseStatusPublished})
	if err != nil || again.ID != c.ID {
		t.Fatalf("UpsertByCode update: err=%v id=%v want=%v", err, again.ID, c.ID)
	}

	byCode, err := repo.GetByCode(dbc, code)
	if err != nil || byCode == nil || byCode.Title != "Intro v2" || !byCode.IsPublished() {
		t.Fatalf("GetByCode: err=%v row=%+v", err, byCode)
	}
	if got, err := repo.GetByID(dbc, c.ID); err != nil || got == nil {
		t.Fatalf("GetByID: err=%v", err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID missing: err=%v row=%+v", err, got)
	}

	ids, err := repo.ListIDs(dbc)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == c.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListIDs should include %s", c.ID)
	}
}

func TestCourseStatsRepoRefreshTwoEnrollments(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseStatsRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, testutil.UniqueCode("stats"))
	u1 := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail("stats"))
	u2 := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail("stats"))
	e1 := testutil.SeedEnrollment(t, ctx, tx, u1.ID, course.ID)
	testutil.SeedEnrollment(t, ctx, tx, u2.ID, course.ID)

	if err := tx.Model(&types.Enrollment{}).Where("id = ?", e1.ID).Updates(map[string]interface{}{
		"status":              types.EnrollmentStatusCompleted,
		"progress_percentage": 100,
	}).Error; err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	stats, err := repo.Refresh(dbc, course.ID)
	if err != nil || stats == nil {
		t.Fatalf("Refresh: err=%v", err)
	}
	if stats.TotalEnrollments != 2 || stats.ActiveEnrollments != 1 || stats.CompletedEnrollments != 1 {
		t.Fatalf("counts: %+v", stats)
	}
	if stats.AverageCompletionRate != 50 {
		t.Fatalf("average: want=50 got=%v", stats.AverageCompletionRate)
	}

	again, err := repo.Refresh(dbc, course.ID)
	if err != nil || again.ID != stats.ID {
		t.Fatalf("Refresh should upsert the same row: err=%v", err)
	}
}
