package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CourseRegistry holds course reference data. Courses have no lifecycle beyond
// create/delete; tee times keep the course id as an opaque reference.
type CourseRegistry struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCourseRegistry(db *mongo.Database, logger observability.Logger) *CourseRegistry {
	return &CourseRegistry{
		coll:   db.Collection("courses"),
		logger: logger,
	}
}

type CourseDoc struct {
	ID         uuid.UUID `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Location   string    `bson:"location" json:"location"`
	Website    string    `bson:"website" json:"website"`
	BookingURL string    `bson:"booking_url" json:"booking_url"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

func (c *CourseRegistry) GetCourse(ctx context.Context, id uuid.UUID) (*CourseDoc, error) {
	var course CourseDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get course", err)
		return nil, err
	}
	return &course, nil
}

// Exists reports whether a course id is known to the registry.
func (c *CourseRegistry) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	count, err := c.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *CourseRegistry) CreateCourse(ctx context.Context, course CourseDoc) error {
	course.CreatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, course)
	if err != nil {
		c.logger.Error("failed to create course", err)
		return err
	}
	return nil
}

func (c *CourseRegistry) ListCourses(ctx context.Context) ([]CourseDoc, error) {
	cur, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var courses []CourseDoc
	if err := cur.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *CourseRegistry) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		c.logger.Error("failed to delete course", err)
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
