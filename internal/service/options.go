package service

import (
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
)

// Option configures a service constructor.
type Option func(*settings)

type settings struct {
	now      func() time.Time
	loc      *time.Location
	observer UseCaseObserver
	hub      *feed.Hub
	watch    feed.Options
	policy   domain.TransitionPolicy
}

func newSettings(opts []Option) settings {
	s := settings{
		now:      time.Now,
		loc:      time.Local,
		observer: NoopUseCaseObserver{},
		watch:    feed.DefaultOptions(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.hub == nil {
		s.hub = feed.NewHub()
	}
	return s
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithObserver reports every use case to obs.
func WithObserver(obs UseCaseObserver) Option {
	return func(s *settings) {
		s.observer = useCaseObserverOrNoop([]UseCaseObserver{obs})
	}
}

// WithHub publishes writes to, and subscribes through, hub. Services that
// should see each other's writes must share one hub.
func WithHub(hub *feed.Hub) Option {
	return func(s *settings) {
		s.hub = hub
	}
}

// WithWatchOptions tunes subscriptions.
func WithWatchOptions(o feed.Options) Option {
	return func(s *settings) {
		s.watch = o
	}
}

// WithTransitionPolicy relaxes the status machine.
func WithTransitionPolicy(p domain.TransitionPolicy) Option {
	return func(s *settings) {
		s.policy = p
	}
}

// clock returns the current instant in UTC, truncated to the stored precision.
func (s settings) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s settings) publish(topic feed.Topic, id string, op feed.Op) {
	s.hub.Publish(feed.Change{Topic: topic, ID: id, Op: op})
}
