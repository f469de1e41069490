package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
)

type memLessonRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]*types.Lesson
	metaWrites int
}

func newMemLessonRepo(lessons ...*types.Lesson) *memLessonRepo {
	r := &memLessonRepo{rows: map[uuid.UUID]*types.Lesson{}}
	for _, l := range lessons {
		r.rows[l.ID] = l
	}
	return r
}

func (r *memLessonRepo) Create(_ dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range lessons {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		r.rows[l.ID] = l
	}
	return lessons, nil
}

func (r *memLessonRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memLessonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error) {
	var out []*types.Lesson
	for _, id := range ids {
		if l, _ := r.GetByID(dbc, id); l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLessonRepo) GetByVideoID(_ dbctx.Context, videoID string) (*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.rows {
		if l.VideoID != nil && *l.VideoID == videoID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLessonRepo) ListByCourseID(_ dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Lesson
	for _, l := range r.rows {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *memLessonRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	rows, _ := r.ListByCourseID(dbc, courseID)
	return int64(len(rows)), nil
}

func (r *memLessonRepo) UpsertByCourseAndOrder(_ dbctx.Context, lesson *types.Lesson) (*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.rows {
		if l.CourseID == lesson.CourseID && l.Order == lesson.Order {
			l.Title = lesson.Title
			l.Description = lesson.Description
			l.IsFree = lesson.IsFree
			l.VideoID = lesson.VideoID
			return l, nil
		}
	}
	lesson.ID = uuid.New()
	r.rows[lesson.ID] = lesson
	return lesson, nil
}

func (r *memLessonRepo) UpdateVideoIfNewer(_ dbctx.Context, id uuid.UUID, eventAt time.Time, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	if l.VideoEventAt != nil && l.VideoEventAt.After(eventAt) {
		return false, nil
	}
	for k, v := range updates {
		switch k {
		case "video_status":
			l.VideoStatus = v.(string)
		case "duration_seconds":
			l.DurationSeconds = v.(int)
		case "video_id":
			l.VideoID = nil
		case "metadata":
			r.metaWrites++
		}
	}
	at := eventAt
	l.VideoEventAt = &at
	return true, nil
}

func (r *memLessonRepo) SoftDeleteByIDs(_ dbctx.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.rows, id)
	}
	return nil
}

type memProgressRepo struct {
	rows []*types.LessonProgress
}

func (r *memProgressRepo) GetByUserAndLesson(_ dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	for _, p := range r.rows {
		if p.UserID == userID && p.LessonID == lessonID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memProgressRepo) GetByUserAndLessonIDs(_ dbctx.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range lessonIDs {
		want[id] = true
	}
	var out []*types.LessonProgress
	for _, p := range r.rows {
		if p.UserID == userID && want[p.LessonID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProgressRepo) EnsureExists(dbctx.Context, *types.LessonProgress) (bool, error) {
	return false, nil
}
func (r *memProgressRepo) LockByUserAndLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	return r.GetByUserAndLesson(dbc, userID, lessonID)
}
func (r *memProgressRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (r *memProgressRepo) CountCompletedForCourse(dbctx.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

type stubLessonAgg struct {
	mu          sync.Mutex
	sample      func(in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error)
	complete    func(in domainagg.MarkLessonCompleteInput) (domainagg.LessonProgressResult, error)
	session     func(in domainagg.StartLessonSessionInput) (domainagg.LessonProgressResult, error)
	sampleCalls int
	lastSample  domainagg.RecordWatchSampleInput
}

func (a *stubLessonAgg) Contract() domainagg.Contract {
	return domainagg.LessonProgressAggregateContract
}

func (a *stubLessonAgg) RecordSample(_ context.Context, in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
	a.mu.Lock()
	a.sampleCalls++
	a.lastSample = in
	a.mu.Unlock()
	return a.sample(in)
}

func (a *stubLessonAgg) MarkComplete(_ context.Context, in domainagg.MarkLessonCompleteInput) (domainagg.LessonProgressResult, error) {
	return a.complete(in)
}

func (a *stubLessonAgg) StartSession(_ context.Context, in domainagg.StartLessonSessionInput) (domainagg.LessonProgressResult, error) {
	if a.session == nil {
		return domainagg.LessonProgressResult{Progress: &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID}}, nil
	}
	return a.session(in)
}

type stubEnrollAgg struct {
	mu    sync.Mutex
	fn    func(in domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error)
	calls []domainagg.RecomputeEnrollmentInput
}

func (a *stubEnrollAgg) Contract() domainagg.Contract {
	return domainagg.EnrollmentProgressAggregateContract
}

func (a *stubEnrollAgg) Recompute(_ context.Context, in domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, in)
	a.mu.Unlock()
	return a.fn(in)
}

type recNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recNotifier) add(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recNotifier) LessonProgressUpdated(context.Context, *types.LessonProgress) {
	n.add("LessonProgressUpdated")
}
func (n *recNotifier) LessonCompleted(context.Context, *types.LessonProgress, uuid.UUID, bool) {
	n.add("LessonCompleted")
}
func (n *recNotifier) CourseProgressUpdated(context.Context, *types.Enrollment) {
	n.add("CourseProgressUpdated")
}
func (n *recNotifier) CourseCompleted(context.Context, *types.Enrollment) { n.add("CourseCompleted") }
func (n *recNotifier) LessonVideoUpdated(context.Context, *types.Lesson)  { n.add("LessonVideoUpdated") }

func (n *recNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs []*types.JobRun
}

func (r *memJobRepo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		j.ID = uuid.New()
		r.jobs = append(r.jobs, j)
	}
	return jobs, nil
}
func (r *memJobRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*types.JobRun, error) { return nil, nil }
func (r *memJobRepo) GetLatestByEntity(dbctx.Context, string, uuid.UUID, string) (*types.JobRun, error) {
	return nil, nil
}
func (r *memJobRepo) ClaimNextRunnable(dbctx.Context, int, time.Duration) (*types.JobRun, error) {
	return nil, nil
}
func (r *memJobRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (r *memJobRepo) UpdateFieldsUnlessStatus(dbctx.Context, uuid.UUID, []string, map[string]interface{}) (bool, error) {
	return true, nil
}
func (r *memJobRepo) Heartbeat(dbctx.Context, uuid.UUID) error { return nil }
func (r *memJobRepo) HasRunnableForEntity(_ dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.EntityType == entityType && j.EntityID != nil && *j.EntityID == entityID && j.JobType == jobType &&
			(j.Status == types.JobStatusQueued || j.Status == types.JobStatusRunning) {
			return true, nil
		}
	}
	return false, nil
}

type stubVimeo struct {
	status *vimeo.VideoStatus
	err    error
	calls  int
}

func (v *stubVimeo) GetVideoStatus(context.Context, string) (*vimeo.VideoStatus, error) {
	v.calls++
	return v.status, v.err
}

type memCourseRepo struct {
	rows map[uuid.UUID]*types.Course
}

func newMemCourseRepo(courses ...*types.Course) *memCourseRepo {
	r := &memCourseRepo{rows: map[uuid.UUID]*types.Course{}}
	for _, c := range courses {
		r.rows[c.ID] = c
	}
	return r
}

func (r *memCourseRepo) Create(_ dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	for _, c := range courses {
		r.rows[c.ID] = c
	}
	return courses, nil
}
func (r *memCourseRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Course, error) {
	return r.rows[id], nil
}
func (r *memCourseRepo) GetByCode(_ dbctx.Context, code string) (*types.Course, error) {
	for _, c := range r.rows {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, nil
}
func (r *memCourseRepo) ListIDs(dbctx.Context) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(r.rows))
	for id := range r.rows {
		out = append(out, id)
	}
	return out, nil
}
func (r *memCourseRepo) UpsertByCode(dbc dbctx.Context, course *types.Course) (*types.Course, error) {
	if c, _ := r.GetByCode(dbc, course.Code); c != nil {
		c.Title, c.Description, c.Status = course.Title, course.Description, course.Status
		return c, nil
	}
	course.ID = uuid.New()
	r.rows[course.ID] = course
	return course, nil
}

type memUserRepo struct {
	rows map[uuid.UUID]*types.User
}

func newMemUserRepo(users ...*types.User) *memUserRepo {
	r := &memUserRepo{rows: map[uuid.UUID]*types.User{}}
	for _, u := range users {
		r.rows[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ dbctx.Context, users []*types.User) ([]*types.User, error) {
	for _, u := range users {
		r.rows[u.ID] = u
	}
	return users, nil
}
func (r *memUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.User, error) {
	return r.rows[id], nil
}
func (r *memUserRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*types.User, error) { return nil, nil }
func (r *memUserRepo) GetByEmail(_ dbctx.Context, email string) (*types.User, error) {
	for _, u := range r.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}
func (r *memUserRepo) Exists(_ dbctx.Context, id uuid.UUID) (bool, error) {
	_, ok := r.rows[id]
	return ok, nil
}
func (r *memUserRepo) UpsertByEmail(dbc dbctx.Context, u *types.User) (*types.User, error) {
	if existing, _ := r.GetByEmail(dbc, u.Email); existing != nil {
		existing.Name = u.Name
		return existing, nil
	}
	u.ID = uuid.New()
	r.rows[u.ID] = u
	return u, nil
}

type memEnrollmentRepo struct {
	rows []*types.Enrollment
}

func (r *memEnrollmentRepo) EnsureExists(_ dbctx.Context, row *types.Enrollment) (bool, error) {
	for _, e := range r.rows {
		if e.UserID == row.UserID && e.CourseID == row.CourseID {
			return false, nil
		}
	}
	row.ID = uuid.New()
	r.rows = append(r.rows, row)
	return true, nil
}
func (r *memEnrollmentRepo) GetByUserAndCourse(_ dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	for _, e := range r.rows {
		if e.UserID == userID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, nil
}
func (r *memEnrollmentRepo) ListByUserID(_ dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	for _, e := range r.rows {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *memEnrollmentRepo) LockByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	return r.GetByUserAndCourse(dbc, userID, courseID)
}
func (r *memEnrollmentRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}

// ListRecomputable orders by id string, which is enough for paging in tests.
func (r *memEnrollmentRepo) ListRecomputable(_ dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Enrollment, error) {
	rows := append([]*types.Enrollment(nil), r.rows...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.String() < rows[j].ID.String() })
	var out []*types.Enrollment
	for _, e := range rows {
		if e.Status == types.EnrollmentStatusDropped {
			continue
		}
		if afterID != uuid.Nil && e.ID.String() <= afterID.String() {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memStatsRepo struct {
	rows      map[uuid.UUID]*types.CourseStats
	refreshed []uuid.UUID
}

func (r *memStatsRepo) GetByCourseID(_ dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	return r.rows[courseID], nil
}
func (r *memStatsRepo) Refresh(_ dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	if r.rows == nil {
		r.rows = map[uuid.UUID]*types.CourseStats{}
	}
	r.refreshed = append(r.refreshed, courseID)
	row := &types.CourseStats{CourseID: courseID, LastUpdated: time.Now()}
	r.rows[courseID] = row
	return row, nil
}
