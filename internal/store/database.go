package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
)

// document is the relational shape of a stored record: one JSON payload per
// (collection, id) pair.
type document struct {
	bun.BaseModel `bun:"table:documents"`

	Collection string          `bun:"collection,pk"`
	ID         string          `bun:"id,pk"`
	Data       json.RawMessage `bun:"data,notnull"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// databaseAdapter persists records as JSON documents through bun and pushes
// change notifications through redis pub/sub so subscribers refresh without
// waiting for the poll ticker.
type databaseAdapter struct {
	writer       *bun.DB
	reader       *bun.DB
	redis        *goredis.Client
	notifyPrefix string
	pollInterval time.Duration
	logger       *zap.Logger
}

func newDatabaseAdapter(lc fx.Lifecycle, cfg config.Config, conns *database.Connections, logger *zap.Logger) (Adapter, error) {
	a := &databaseAdapter{
		writer:       conns.Writer,
		reader:       conns.Reader,
		notifyPrefix: cfg.Store.NotifyPrefix,
		pollInterval: cfg.Store.PollInterval,
		logger:       logger,
	}

	if cfg.Cache.Enabled && cfg.Cache.Driver == "redis" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		a.redis = client
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("store change notifications unavailable; falling back to polling", zap.Error(err))
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	} else {
		logger.Info("store change notifications disabled; polling only")
	}

	return a, nil
}

func (a *databaseAdapter) channel(collection string) string {
	return a.notifyPrefix + ":" + collection
}

func (a *databaseAdapter) notify(ctx context.Context, collection string) {
	if a.redis == nil {
		return
	}
	if err := a.redis.Publish(ctx, a.channel(collection), "1").Err(); err != nil {
		a.logger.Warn("store change notify failed", zap.String("collection", collection), zap.Error(err))
	}
}

func (a *databaseAdapter) Create(ctx context.Context, collection string, rec Record) (string, error) {
	id := uuid.NewString()
	payload := cloneRecord(rec)
	payload["id"] = id

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	doc := &document{
		Collection: collection,
		ID:         id,
		Data:       raw,
		UpdatedAt:  time.Now().UTC(),
	}
	if _, err := a.writer.NewInsert().Model(doc).Exec(ctx); err != nil {
		return "", unavailable(err)
	}

	a.notify(ctx, collection)
	return id, nil
}

func (a *databaseAdapter) Update(ctx context.Context, collection, id string, patch Record) error {
	err := a.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		doc := new(document)
		err := tx.NewSelect().Model(doc).
			Where("collection = ?", collection).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return unavailable(err)
		}

		var rec Record
		if err := json.Unmarshal(doc.Data, &rec); err != nil {
			return err
		}
		for k, v := range patch {
			rec[k] = v
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		doc.Data = raw
		doc.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(doc).
			Column("data", "updated_at").
			Where("collection = ?", collection).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
			return err
		}
		return unavailable(err)
	}

	a.notify(ctx, collection)
	return nil
}

func (a *databaseAdapter) Delete(ctx context.Context, collection, id string) error {
	res, err := a.writer.NewDelete().Model((*document)(nil)).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	a.notify(ctx, collection)
	return nil
}

func (a *databaseAdapter) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	var pubsub *goredis.PubSub
	if a.redis != nil {
		pubsub = a.redis.Subscribe(watchCtx, a.channel(collection))
	}

	snaps := make(chan Snapshot, 8)
	errs := make(chan error, 8)

	go a.watch(watchCtx, collection, pubsub, snaps, errs)

	sub := &Subscription{Snapshots: snaps, Errors: errs}
	sub.cancel = func() {
		cancel()
		if pubsub != nil {
			_ = pubsub.Close()
		}
	}
	return sub, nil
}

func (a *databaseAdapter) watch(ctx context.Context, collection string, pubsub *goredis.PubSub, snaps chan<- Snapshot, errs chan<- error) {
	defer close(snaps)
	defer close(errs)

	emit := func() {
		recs, err := a.load(ctx, collection)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("collection load failed", zap.String("collection", collection), zap.Error(err))
			select {
			case errs <- err:
			default:
			}
			return
		}
		select {
		case snaps <- Snapshot{Collection: collection, Records: recs}:
		case <-ctx.Done():
		}
	}

	emit()

	var notify <-chan *goredis.Message
	if pubsub != nil {
		notify = pubsub.Channel()
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		case _, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			emit()
		}
	}
}

func (a *databaseAdapter) load(ctx context.Context, collection string) ([]Record, error) {
	var docs []document
	err := a.reader.NewSelect().Model(&docs).
		Where("collection = ?", collection).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	recs := make([]Record, 0, len(docs))
	for _, doc := range docs {
		var rec Record
		if err := json.Unmarshal(doc.Data, &rec); err != nil {
			a.logger.Warn("skipping malformed document",
				zap.String("collection", collection),
				zap.String("id", doc.ID),
				zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
