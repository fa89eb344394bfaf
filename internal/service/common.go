package service

import (
	"errors"

	"social-graph-service/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// deliverLatest pushes v into a capacity-1 channel, replacing any undelivered
// value. Consumers that lag skip intermediate states but always see the
// latest one.
func deliverLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
