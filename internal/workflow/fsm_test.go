package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rezerv/internal/models"
)

func TestFSM_CanTransition(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		from models.Status
		to   models.Status
		want bool
	}{
		{models.StatusPending, models.StatusAccepted, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusAccepted, models.StatusCancelled, true},
		{models.StatusAccepted, models.StatusPending, false},
		{models.StatusAccepted, models.StatusRejected, false},
		{models.StatusRejected, models.StatusAccepted, false},
		{models.StatusRejected, models.StatusRejected, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusCancelled, models.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, fsm.CanTransition(tt.from, tt.to))
		})
	}
}
