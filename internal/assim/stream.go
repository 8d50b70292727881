package assim

import "context"

// Event is sent by Stream: one per major iteration, then a final event
// carrying either the analysis or the error.
type Event struct {
	Iteration *Iteration
	Analysis  *Analysis
	Err       error
}

// Stream runs Minimize in its own goroutine. The returned channel is closed
// once the final event has been delivered or ctx is done.
func Stream(ctx context.Context, p *Problem, s Settings) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		send := func(ev Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		an, err := Minimize(ctx, p, s, func(it Iteration) error {
			return send(Event{Iteration: &it})
		})
		_ = send(Event{Analysis: an, Err: err})
	}()

	return events
}
