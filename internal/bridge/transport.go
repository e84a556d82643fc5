package bridge

import "context"

// ControlTransport adapts the requester to the front-end transport shape
// shared with the streaming client: one submit-and-wait per utterance.
type ControlTransport struct {
	requester *Requester
}

// NewControlTransport wraps a requester.
func NewControlTransport(r *Requester) *ControlTransport {
	return &ControlTransport{requester: r}
}

// SendUtterance submits the utterance and blocks for the response payload.
func (t *ControlTransport) SendUtterance(ctx context.Context, samples []float32) ([]float32, error) {
	if err := t.requester.Submit(samples); err != nil {
		return nil, err
	}
	out, _, err := t.requester.AwaitResult(ctx)
	return out, err
}

// Stop writes the terminate sentinel.
func (t *ControlTransport) Stop() error {
	return t.requester.RequestStop()
}
