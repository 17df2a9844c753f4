package repository

import (
	"context"
	"fmt"

	"github.com/Nomankaif/debtprotection-quiz/internal/db"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/oxidb"
)

const SubmissionsCollection = "quiz_submissions"

// Store persists write-once submissions. Lookups that find nothing return
// a nil submission and a nil error.
type Store interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, sub *models.Submission) (string, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, skip, limit int) ([]models.Submission, int, error)
	CountBy(ctx context.Context, field, value string) (int, error)
	// Indexes describes the secondary indexes on the submissions store.
	Indexes(ctx context.Context) ([]map[string]any, error)
	Ping(ctx context.Context) error
	Close() error
}

// countableFields are the document fields CountBy accepts.
var countableFields = map[string]bool{
	"debtAmount":       true,
	"countryCode":      true,
	"employmentStatus": true,
	"zipcode":          true,
}

type SubmissionRepo struct {
	pool *db.Pool
}

func NewSubmissionRepo(pool *db.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateIndex(ctx, SubmissionsCollection, "email"); err != nil && !oxidb.IsAlreadyExists(err) {
		return err
	}
	if err := c.CreateIndex(ctx, SubmissionsCollection, "debtAmount"); err != nil && !oxidb.IsAlreadyExists(err) {
		return err
	}
	err := c.CreateCompositeIndex(ctx, SubmissionsCollection, []string{"zipcode", "createdAt"})
	if err != nil && !oxidb.IsAlreadyExists(err) {
		return err
	}
	return nil
}

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	doc, err := submissionToDoc(sub)
	if err != nil {
		return "", err
	}
	result, err := r.pool.Get().Insert(ctx, SubmissionsCollection, doc)
	if err != nil {
		return "", err
	}
	id := extractID(result)
	if id == "" {
		return "", fmt.Errorf("insert into %s: response carried no id", SubmissionsCollection)
	}
	return id, nil
}

func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	doc, err := r.pool.Get().FindOne(ctx, SubmissionsCollection, map[string]any{"_id": toNumericID(id)})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return docToSubmission(doc)
}

func (r *SubmissionRepo) List(ctx context.Context, skip, limit int) ([]models.Submission, int, error) {
	c := r.pool.Get()
	query := map[string]any{}

	total, err := c.Count(ctx, SubmissionsCollection, query)
	if err != nil {
		return nil, 0, err
	}

	docs, err := c.Find(ctx, SubmissionsCollection, query, &oxidb.FindOptions{
		Sort:  map[string]any{"createdAt": -1},
		Skip:  &skip,
		Limit: &limit,
	})
	if err != nil {
		return nil, 0, err
	}

	subs := make([]models.Submission, 0, len(docs))
	for _, d := range docs {
		s, err := docToSubmission(d)
		if err != nil {
			continue
		}
		subs = append(subs, *s)
	}
	return subs, total, nil
}

// CountBy counts submissions whose field equals value. An empty field
// counts every submission.
func (r *SubmissionRepo) CountBy(ctx context.Context, field, value string) (int, error) {
	query := map[string]any{}
	if field != "" {
		if !countableFields[field] {
			return 0, fmt.Errorf("count by %q: unsupported field", field)
		}
		query[field] = value
	}
	return r.pool.Get().Count(ctx, SubmissionsCollection, query)
}

func (r *SubmissionRepo) Indexes(ctx context.Context) ([]map[string]any, error) {
	return r.pool.Get().ListIndexes(ctx, SubmissionsCollection)
}

func (r *SubmissionRepo) Ping(ctx context.Context) error {
	_, err := r.pool.Get().Ping(ctx)
	return err
}

// Close releases the connection pool.
func (r *SubmissionRepo) Close() error {
	r.pool.Close()
	return nil
}
