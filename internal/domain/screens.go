package domain

import (
	"github.com/sirupsen/logrus"

	"example.com/wellness/internal/kv"
	"example.com/wellness/internal/records"
	"example.com/wellness/internal/screen"
)

var (
	_ screen.Screen = (*screen.Controller[Workout, WorkoutSummary])(nil)
	_ screen.Screen = (*screen.Controller[Meal, MealSummary])(nil)
	_ screen.Screen = (*screen.Controller[SleepEntry, SleepSummary])(nil)
)

// NewScreens builds the workout, nutrition and sleep screens over backend, in menu order.
func NewScreens(backend kv.Store, logger logrus.FieldLogger, opts ...screen.Option) []screen.Screen {
	return []screen.Screen{
		newScreen(WorkoutBinding(), backend, logger, opts),
		newScreen(NutritionBinding(), backend, logger, opts),
		newScreen(SleepBinding(), backend, logger, opts),
	}
}

func newScreen[T records.Record[T], A any](b screen.Binding[T, A], backend kv.Store, logger logrus.FieldLogger, opts []screen.Option) *screen.Controller[T, A] {
	store := records.New(backend, b.Key, b.Seed,
		records.WithDomain(b.Domain),
		records.WithLogger(logger),
	)
	all := make([]screen.Option, 0, len(opts)+1)
	all = append(all, screen.WithLogger(logger))
	all = append(all, opts...)
	return screen.New(b, store, all...)
}
