package ensemble

import "errors"

// ErrNoPredictions is returned when every enabled model failed or timed out
// and no fabricated score can stand in for a real one.
var ErrNoPredictions = errors.New("no predictions available from any model")

// ErrNoModels is returned when no models are enabled and loaded.
var ErrNoModels = errors.New("no models enabled")
