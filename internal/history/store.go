// Package history keeps a time series of run summaries in Redis so scores of
// the same run can be compared across evaluations.
package history

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// DataPoint is one recorded value of a metric.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Store is a Redis-backed history of run summaries. Each (run, metric) pair
// is a sorted set scored by Unix time.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // zero keeps every point
}

// NewStore connects to Redis at url and verifies the connection.
func NewStore(url, prefix string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.UnavailableError("redis", err)
	}

	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *Store) key(run, metric string) string {
	return s.prefix + run + ":" + metric
}

// Record stores every metric of summary at time at.
func (s *Store) Record(ctx context.Context, summary *evaluation.RunSummary, at time.Time) error {
	pipe := s.client.Pipeline()

	for _, metric := range evaluation.MetricNames {
		value, _ := summary.Metric(metric)
		key := s.key(summary.Run, metric)

		// Equal values at different times must stay distinct members
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(at.Unix()),
			Member: encodeMember(at, value),
		})

		if s.ttl > 0 {
			minScore := at.Add(-s.ttl).Unix()
			pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(minScore, 10))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "recording run history", err)
	}
	return nil
}

// LoadHistory returns points of metric for run recorded at or after since,
// oldest first.
func (s *Store) LoadHistory(ctx context.Context, run, metric string, since time.Time) ([]DataPoint, error) {
	if _, ok := (&evaluation.RunSummary{}).Metric(metric); !ok {
		return nil, errors.ValidationError(fmt.Sprintf("unknown metric %q (want one of %s)", metric, strings.Join(evaluation.MetricNames, ", ")))
	}

	results, err := s.client.ZRangeByScoreWithScores(ctx, s.key(run, metric), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "loading run history", err)
	}

	points := make([]DataPoint, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		dp, err := decodeMember(member)
		if err != nil {
			// Skip entries not written by Record
			continue
		}
		points = append(points, dp)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// Runs returns the names of runs with recorded history, sorted.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	suffix := ":" + evaluation.MetricMAP
	var runs []string

	iter := s.client.Scan(ctx, 0, s.prefix+"*"+suffix, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		runs = append(runs, strings.TrimSuffix(strings.TrimPrefix(key, s.prefix), suffix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "listing runs", err)
	}

	sort.Strings(runs)
	return runs, nil
}

// DeleteRun deletes all history of run.
func (s *Store) DeleteRun(ctx context.Context, run string) error {
	keys := make([]string, len(evaluation.MetricNames))
	for i, metric := range evaluation.MetricNames {
		keys[i] = s.key(run, metric)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "deleting run history", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// encodeMember formats a point as "<unix nanos>:<value>".
func encodeMember(at time.Time, value float64) string {
	return strconv.FormatInt(at.UnixNano(), 10) + ":" + strconv.FormatFloat(value, 'f', -1, 64)
}

func decodeMember(member string) (DataPoint, error) {
	ts, val, ok := strings.Cut(member, ":")
	if !ok {
		return DataPoint{}, fmt.Errorf("malformed member %q", member)
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return DataPoint{}, err
	}
	value, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return DataPoint{}, err
	}
	return DataPoint{Timestamp: time.Unix(0, nanos), Value: value}, nil
}
