package service

import (
	"context"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"lms_backend/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var (
	learner      = Actor{UserID: testutil.LearnerID, Role: model.Student}
	otherLearner = Actor{UserID: testutil.OtherID, Role: model.Student}
	instructor   = Actor{UserID: testutil.InstructorID, Role: model.Teacher}
	otherTeacher = Actor{UserID: testutil.OtherID, Role: model.Teacher}
	admin        = Actor{UserID: 1, Role: model.Admin}
)

type fixture struct {
	ctx         context.Context
	db          *gorm.DB
	now         time.Time
	metrics     *monitoring.Metrics
	cache       *memoryCache
	assessments *AssessmentService
	submissions *SubmissionService
	grades      *GradeService
	courses     *CourseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	assessmentRepo := repository.NewAssessmentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	f := &fixture{
		ctx:     context.Background(),
		db:      db,
		now:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		metrics: monitoring.NewMetrics(prometheus.NewRegistry()),
		cache:   newMemoryCache(),
	}
	f.grades = NewGradeService(courseRepo, submissionRepo, gradeRepo, log)
	f.submissions = NewSubmissionService(db, assessmentRepo, questionRepo, submissionRepo, courseRepo, f.grades, f.metrics, log)
	f.submissions.Now = func() time.Time { return f.now }
	f.assessments = NewAssessmentService(db, assessmentRepo, questionRepo, submissionRepo, courseRepo, f.cache, log)
	f.courses = NewCourseService(courseRepo, log)
	return f
}

// memoryCache is an AssessmentCache backed by maps.
type memoryCache struct {
	items         map[uint]model.Assessment
	itemVersions  map[uint]int64
	versions      map[uint]int64
	gets          int
	invalidations int
	// beforeSet runs ahead of every Set, standing in for a write that
	// commits while a fill is in flight.
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		items:        make(map[uint]model.Assessment),
		itemVersions: make(map[uint]int64),
		versions:     make(map[uint]int64),
	}
}

func (c *memoryCache) Version(_ context.Context, id uint) (int64, error) {
	return c.versions[id], nil
}

func (c *memoryCache) Get(_ context.Context, id uint, version int64) (*model.Assessment, error) {
	c.gets++
	a, ok := c.items[id]
	if !ok || c.itemVersions[id] != version {
		return nil, nil
	}
	return &a, nil
}

func (c *memoryCache) Set(_ context.Context, a *model.Assessment, version int64) error {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.items[a.ID] = *a
	c.itemVersions[a.ID] = version
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id uint) error {
	c.invalidations++
	c.versions[id]++
	delete(c.items, id)
	return nil
}

func (f *fixture) start(t *testing.T, actor Actor, assessmentID uint) *SubmissionView {
	t.Helper()
	sub, err := f.submissions.StartSubmission(f.ctx, actor, assessmentID)
	if err != nil {
		t.Fatalf("start submission: %v", err)
	}
	return sub
}

func (f *fixture) choose(t *testing.T, actor Actor, submissionID uint, q *model.Question, optionID uint) *model.AnswerResponse {
	t.Helper()
	a, err := f.submissions.SaveAnswer(f.ctx, actor, submissionID, q.ID, AnswerRequest{SelectedOptionID: &optionID})
	if err != nil {
		t.Fatalf("save answer: %v", err)
	}
	return a
}

func (f *fixture) write(t *testing.T, actor Actor, submissionID uint, q *model.Question, text string) *model.AnswerResponse {
	t.Helper()
	a, err := f.submissions.SaveAnswer(f.ctx, actor, submissionID, q.ID, AnswerRequest{TextResponse: &text})
	if err != nil {
		t.Fatalf("save answer: %v", err)
	}
	return a
}

func (f *fixture) submit(t *testing.T, actor Actor, submissionID uint) *SubmissionView {
	t.Helper()
	sub, err := f.submissions.SubmitAssessment(f.ctx, actor, submissionID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return sub
}
