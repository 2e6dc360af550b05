package component

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	name     string
	startErr error
	log      *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.log = append(*f.log, "start:"+f.name)
	return nil
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return nil
}

func TestOrchestratorStartStopOrder(t *testing.T) {
	var log []string
	orch := NewOrchestrator()
	orch.Register(&fakeComponent{name: "a", log: &log})
	orch.Register(&fakeComponent{name: "b", log: &log})
	orch.Register(&fakeComponent{name: "c", log: &log})

	require.NoError(t, orch.Start(context.Background()))
	require.NoError(t, orch.Stop(context.Background()))

	assert.Equal(t, []string{
		"start:a", "start:b", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, log)
}

func TestOrchestratorStartFailureUnwinds(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	orch := NewOrchestrator()
	orch.Register(&fakeComponent{name: "a", log: &log})
	orch.Register(&fakeComponent{name: "b", log: &log})
	orch.Register(&fakeComponent{name: "c", startErr: boom, log: &log})

	err := orch.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{
		"start:a", "start:b",
		"stop:b", "stop:a",
	}, log)

	// Nothing is considered started after a failed Start, so Stop is a no-op.
	require.NoError(t, orch.Stop(context.Background()))
	assert.Len(t, log, 4)
}
