package trips

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type actionFunc func(context.Context, uuid.UUID, Event) error

type actionFactory struct {
	byStatus map[string]actionFunc
}

func newActionFactory(onStarted, onCompleted, onCancelled actionFunc) *actionFactory {
	return &actionFactory{
		byStatus: map[string]actionFunc{
			StatusStarted:   onStarted,
			"picked_up":     onStarted,
			StatusCompleted: onCompleted,
			"delivered":     onCompleted,
			StatusCancelled: onCancelled,
			"canceled":      onCancelled,
		},
	}
}

func (f *actionFactory) get(status string) (actionFunc, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	fn, ok := f.byStatus[status]
	return fn, ok
}
