package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"pagescribe/internal/pipeline"
)

const defaultQueue = "capture_jobs"

// CaptureJob is one queued capture awaiting pipeline processing.
type CaptureJob struct {
	OwnerID      string           `json:"ownerId"`
	AutomationID string           `json:"automationId"`
	Content      pipeline.Content `json:"content"`
}

type Queue struct {
	client *redis.Client
	name   string
}

func New(url, name string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = defaultQueue
	}
	return &Queue{client: redis.NewClient(opt), name: name}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) PushCapture(ctx context.Context, job CaptureJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.name, payload).Err()
}

func (q *Queue) PopCapture(ctx context.Context, timeout time.Duration) (CaptureJob, error) {
	var job CaptureJob
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		return job, err
	}
	if len(res) < 2 {
		return job, redis.Nil
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return job, err
	}
	return job, nil
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
