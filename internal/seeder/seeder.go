package seeder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/store"
)

// Module wires the database seeder.
var Module = fx.Provide(New)

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Collection string          `bun:"collection,pk"`
	ID         string          `bun:"id,pk"`
	Data       json.RawMessage `bun:"data"`
	UpdatedAt  time.Time       `bun:"updated_at"`
}

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Restaurants seeds example restaurants and menu items if they are missing.
func (s *Seeder) Restaurants(ctx context.Context) error {
	restaurants := []entity.Restaurant{
		{ID: "rest-0001", Name: "Trattoria Lampione", Open: true, PricePerPerson: 32},
		{ID: "rest-0002", Name: "Banh Mi Corner", Open: true, PricePerPerson: 14},
	}
	items := []entity.MenuItem{
		{ID: "item-0001", RestaurantID: "rest-0001", Name: "Cacio e Pepe", Price: 18.5, Available: true},
		{ID: "item-0002", RestaurantID: "rest-0001", Name: "Tiramisu", Price: 9, Available: true},
		{ID: "item-0003", RestaurantID: "rest-0002", Name: "Classic Banh Mi", Price: 11, Available: true},
	}

	count := 0
	for _, r := range restaurants {
		if err := s.insert(ctx, store.CollectionRestaurants, r.ID, r); err != nil {
			return err
		}
		count++
	}
	for _, item := range items {
		if err := s.insert(ctx, store.CollectionMenuItems, item.ID, item); err != nil {
			return err
		}
		count++
	}

	if s.logger != nil {
		s.logger.Info("seeded catalog documents", zap.Int("count", count))
	}
	return nil
}

func (s *Seeder) insert(ctx context.Context, collection, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	doc := document{
		Collection: collection,
		ID:         id,
		Data:       data,
		UpdatedAt:  time.Now().UTC(),
	}
	_, err = s.db.NewInsert().Model(&doc).
		On("CONFLICT (collection, id) DO NOTHING").
		Exec(ctx)
	return err
}
