//Package store persists labelled videos. Generated labels come from a labelling
//run, confirmed labels are the reviewed copy and always win on reads.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
)

var (
	//ErrNotFound means no labels are stored for the video.
	ErrNotFound = errors.New("store: labels not found")

	//ErrInvalidIndex means an update addressed a rally or event that does not exist.
	ErrInvalidIndex = errors.New("store: invalid index")

	//ErrUnknownDriver means the configured driver is not one of file, redis, postgres.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

//Source tells which copy of the labels was read.
type Source string

const (
	Generated Source = "generated"
	Confirmed Source = "confirmed"
)

//Store keeps a generated and a confirmed copy of the labels of every video.
type Store interface {
	//Save overwrites the given copy of the labels of labels.VideoID.
	Save(ctx context.Context, source Source, labels *shot.VideoLabels) error
	//Get returns the confirmed copy when there is one, else the generated one.
	Get(ctx context.Context, videoID string) (*shot.VideoLabels, Source, error)
	//Confirm copies the generated labels over the confirmed ones.
	Confirm(ctx context.Context, videoID string) error
	Close() error
}

//Config selects and configures a backend.
type Config struct {
	Driver       string
	GeneratedDir string
	ConfirmedDir string
	RedisURL     string
	PostgresDSN  string
}

//New opens the backend named by cfg.Driver, "file" when empty.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.GeneratedDir, cfg.ConfirmedDir)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownDriver, cfg.Driver)
	}
}

//UpdateEvent replaces one event of the preferred copy and saves the result as confirmed.
func UpdateEvent(ctx context.Context, s Store, videoID string, rallyIndex, eventIndex int, event shot.Event) error {
	labels, _, err := s.Get(ctx, videoID)
	if err != nil {
		return err
	}

	if rallyIndex < 0 || rallyIndex >= len(labels.Rallies) {
		return fmt.Errorf("%w: rally %d", ErrInvalidIndex, rallyIndex)
	}
	events := labels.Rallies[rallyIndex].Events
	if eventIndex < 0 || eventIndex >= len(events) {
		return fmt.Errorf("%w: event %d of rally %d", ErrInvalidIndex, eventIndex, rallyIndex)
	}

	events[eventIndex] = event
	return s.Save(ctx, Confirmed, labels)
}

func validSource(source Source) error {
	if source != Generated && source != Confirmed {
		return fmt.Errorf("store: unknown source '%s'", source)
	}
	return nil
}
