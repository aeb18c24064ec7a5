package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListFilter narrows a ledger listing.
type ListFilter struct {
	Category   *models.Category
	UnreadOnly bool
}

// NotificationRepository is the authoritative, TTL-expiring store of
// notification records. Expired records are never returned by any read,
// whether or not MongoDB has physically reaped them yet.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, recipientID string, filter ListFilter, page, limit int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
	MarkClicked(ctx context.Context, id string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context, recipientID string) error
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	SetSentFlags(ctx context.Context, id string, email, push bool) error
	DeleteExpired(ctx context.Context) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB.
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository.
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// notificationIndexes returns the collection's index models: recipient
// listing, unread lookups, and the TTL index that auto-removes records at
// expires_at. Unread queries filter on read_at absence, which a partial index
// cannot express (partialFilterExpression rejects $exists: false), so the
// unread index is a plain compound one.
func notificationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
}

// EnsureIndexes creates the collection indexes.
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, notificationIndexes())
	return err
}

// notExpired filters out records whose expiry has passed. TTL reaping is
// lazy, so every read must apply this.
func notExpired(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$exists": false}},
		bson.M{"expires_at": bson.M{"$gt": now}},
	}}
}

// Create inserts a new notification record.
func (r *MongoNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// GetByID retrieves a single visible notification.
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	filter := bson.M{"_id": id, "$and": bson.A{notExpired(time.Now().UTC())}}
	if err := r.collection.FindOne(ctx, filter).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// List returns a page of visible notifications, newest first, plus the total.
func (r *MongoNotificationRepository) List(ctx context.Context, recipientID string, filter ListFilter, page, limit int) ([]models.Notification, int64, error) {
	query := bson.M{
		"recipient_id": recipientID,
		"$and":         bson.A{notExpired(time.Now().UTC())},
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.UnreadOnly {
		query["read_at"] = bson.M{"$exists": false}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	skip := int64(page-1) * int64(limit)
	findOptions := options.Find().
		SetSkip(skip).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0, limit)
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead sets read_at if unset and returns the updated record. Marking an
// already-read record is a no-op that still returns it; an unknown id is an
// error.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	return r.atomicUpdate(ctx, id, false)
}

// MarkClicked sets clicked_at and, if still unset, read_at in one atomic
// update, so read_at <= clicked_at always holds.
func (r *MongoNotificationRepository) MarkClicked(ctx context.Context, id string) (*models.Notification, error) {
	return r.atomicUpdate(ctx, id, true)
}

// atomicUpdate applies the read (and optionally clicked) transition as a
// single pipeline update. $ifNull keeps already-set timestamps, which makes
// concurrent mark operations linearize without racing the two fields.
func (r *MongoNotificationRepository) atomicUpdate(ctx context.Context, id string, clicked bool) (*models.Notification, error) {
	now := time.Now().UTC()
	set := bson.M{
		"read_at":    bson.M{"$ifNull": bson.A{"$read_at", now}},
		"updated_at": now,
	}
	if clicked {
		set["clicked_at"] = bson.M{"$ifNull": bson.A{"$clicked_at", now}}
	}
	filter := bson.M{"_id": id, "$and": bson.A{notExpired(now)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.A{bson.M{"$set": set}}, opts).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("notification update failed: %w", err)
	}
	return &n, nil
}

// MarkAllRead marks every visible unread notification of the recipient as
// read and returns how many changed.
func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"recipient_id": recipientID,
		"read_at":      bson.M{"$exists": false},
		"$and":         bson.A{notExpired(now)},
	}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"read_at": now, "updated_at": now},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a notification. Deleting an unknown id is a no-op.
func (r *MongoNotificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ClearAll removes every notification of the recipient. Idempotent.
func (r *MongoNotificationRepository) ClearAll(ctx context.Context, recipientID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"recipient_id": recipientID})
	return err
}

// UnreadCount counts visible unread notifications.
func (r *MongoNotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	filter := bson.M{
		"recipient_id": recipientID,
		"read_at":      bson.M{"$exists": false},
		"$and":         bson.A{notExpired(time.Now().UTC())},
	}
	return r.collection.CountDocuments(ctx, filter)
}

// DeleteExpired reaps records whose expiry has passed. The TTL index does the
// same eventually; this sweep keeps the collection tight between TTL passes.
func (r *MongoNotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetSentFlags records that a deferred email/push dispatch went out. Flags
// are only ever raised, never cleared.
func (r *MongoNotificationRepository) SetSentFlags(ctx context.Context, id string, email, push bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if email {
		set["email_sent"] = true
	}
	if push {
		set["push_sent"] = true
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
