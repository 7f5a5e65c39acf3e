package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chepyr/taskboard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type taskDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	DueDate     time.Time           `bson:"dueDate"`
	Priority    string              `bson:"priority"`
	Status      string              `bson:"status"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo"`
	CreatedBy   primitive.ObjectID  `bson:"createdBy"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

func newTaskDocument(task *models.Task) (*taskDocument, error) {
	createdBy, err := primitive.ObjectIDFromHex(task.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("createdBy %q: %w", task.CreatedBy, err)
	}
	assignedTo, err := assigneeObjectID(task.AssignedTo)
	if err != nil {
		return nil, err
	}
	doc := &taskDocument{
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate.UTC(),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(task.ID); err != nil {
			return nil, fmt.Errorf("task id %q: %w", task.ID, err)
		}
	}
	return doc, nil
}

func assigneeObjectID(id *string) (*primitive.ObjectID, error) {
	if id == nil {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(*id)
	if err != nil {
		return nil, fmt.Errorf("assignedTo %q: %w", *id, err)
	}
	return &oid, nil
}

func (d *taskDocument) toModel() *models.Task {
	task := &models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate.UTC(),
		Priority:    models.TaskPriority(d.Priority),
		Status:      models.TaskStatus(d.Status),
		CreatedBy:   d.CreatedBy.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.AssignedTo != nil {
		id := d.AssignedTo.Hex()
		task.AssignedTo = &id
	}
	return task
}

type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(database *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{collection: database.Collection(tasksCollection)}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = task.CreatedAt

	doc, err := newTaskDocument(task)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = doc.ID.Hex()
	return nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	oid, err := objectIDFromHex(task.ID)
	if err != nil {
		return err
	}
	assignedTo, err := assigneeObjectID(task.AssignedTo)
	if err != nil {
		return err
	}
	task.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"dueDate":     task.DueDate.UTC(),
		"priority":    string(task.Priority),
		"status":      string(task.Status),
		"assignedTo":  assignedTo,
		"updatedAt":   task.UpdatedAt,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return err
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) ListByUser(ctx context.Context, userID string) ([]*models.Task, error) {
	tasks := []*models.Task{}
	oid, err := objectIDFromHex(userID)
	if err != nil {
		return tasks, nil
	}
	filter := bson.M{"$or": []bson.M{
		{"createdBy": oid},
		{"assignedTo": oid},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return tasks, nil
}
