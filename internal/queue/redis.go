package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zara/scraper/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const streamPrefix = "zara:stream:"

// TaskTypes lists every task type that gets a stream and consumer group.
var TaskTypes = []string{(&task.RefreshTask{}).TaskType()}

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error)
	AckTask(ctx context.Context, stream, group, msgID string) error
	CreateGroup(ctx context.Context, stream, group string) error
	AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error)
	EnsureStreamsExist(ctx context.Context) error
}

// StreamName is the stream holding tasks of the given type.
func StreamName(taskType string) string {
	return streamPrefix + taskType
}

type RedisQueue struct {
	redisClient *redis.Client
	groupName   string
	block       time.Duration
}

func NewRedisQueue(ctx context.Context, redisClient *redis.Client, groupName string) (*RedisQueue, error) {
	q := &RedisQueue{
		redisClient: redisClient,
		groupName:   groupName,
		block:       5 * time.Second,
	}

	// Ensure all streams and consumer groups exist before workers start
	if err := q.EnsureStreamsExist(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure streams exist: %w", err)
	}

	return q, nil
}

// SetBlock changes how long GetTask waits for a new message.
func (q *RedisQueue) SetBlock(d time.Duration) {
	q.block = d
}

func (q *RedisQueue) CreateGroup(ctx context.Context, stream, group string) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Debugf("Group %s already exists for stream %s", group, stream)
		return nil
	}
	return err
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (string, error) {
	taskType := task.TaskType()
	streamName := StreamName(taskType)

	taskValue, err := task.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]any{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

// GetTask returns the next undelivered message, or nil when none arrived in time.
func (q *RedisQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	result, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", stream, err)
	}

	if len(result) == 0 || len(result[0].Messages) == 0 {
		return nil, nil
	}

	return &result[0].Messages[0], nil
}

func (q *RedisQueue) AckTask(ctx context.Context, stream, group, msgID string) error {
	return q.redisClient.XAck(ctx, stream, group, msgID).Err()
}

func (q *RedisQueue) AutoClaim(
	ctx context.Context,
	group,
	consumer,
	stream string,
	minIdleTime time.Duration,
) ([]redis.XMessage, error) {
	result, _, err := q.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to claim messages from Redis stream %s: %w", stream, err)
	}

	return result, nil
}

// EnsureStreamsExist creates all required streams and consumer groups upfront
func (q *RedisQueue) EnsureStreamsExist(ctx context.Context) error {
	for _, taskType := range TaskTypes {
		streamName := StreamName(taskType)

		if err := q.CreateGroup(ctx, streamName, q.groupName); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", taskType, err)
		}

		log.Infof("✅ Stream %s and consumer group %s ready", streamName, q.groupName)
	}

	return nil
}
