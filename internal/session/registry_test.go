package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planmode/internal/types"
)

type recordingDriver struct {
	mu        sync.Mutex
	prompts   []string
	followUps []string
}

func (d *recordingDriver) Prompt(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, text)
	return nil
}

func (d *recordingDriver) FollowUp(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.followUps = append(d.followUps, text)
	return nil
}

func TestRegistry_RegisterGetRemove(t *testing.T) {
	registry := NewRegistry(nil)
	id := types.NewSessionID()
	runtime := NewRuntime(id, &recordingDriver{})

	_, ok := registry.Get(id)
	assert.False(t, ok)

	registry.Register(runtime)
	assert.Equal(t, 1, registry.Count())

	got, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, got.ID())

	managed, ok := registry.GetManagedSession(id)
	require.True(t, ok)
	assert.False(t, managed.IsStreaming())

	registry.Remove(id)
	assert.Equal(t, 0, registry.Count())
	_, ok = registry.GetManagedSession(id)
	assert.False(t, ok)

	registry.Remove(id) // second remove is a no-op
}

func TestRegistry_ReplaceRuntime(t *testing.T) {
	registry := NewRegistry(nil)
	id := types.NewSessionID()

	first := NewRuntime(id, &recordingDriver{})
	second := NewRuntime(id, &recordingDriver{})
	second.SetStreaming(true)

	registry.Register(first)
	registry.Register(second)

	assert.Equal(t, 1, registry.Count())
	got, ok := registry.Get(id)
	require.True(t, ok)
	assert.True(t, got.IsStreaming())
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry(nil)
	a := types.NewSessionID()
	b := types.NewSessionID()
	registry.Register(NewRuntime(a, &recordingDriver{}))
	registry.Register(NewRuntime(b, &recordingDriver{}))

	assert.ElementsMatch(t, []types.SessionID{a, b}, registry.List())
}

func TestRuntime_Delivery(t *testing.T) {
	driver := &recordingDriver{}
	runtime := NewRuntime(types.NewSessionID(), driver)

	require.NoError(t, runtime.DeliverPrompt(context.Background(), "start"))
	require.NoError(t, runtime.DeliverFollowUp(context.Background(), "and then"))

	assert.Equal(t, []string{"start"}, driver.prompts)
	assert.Equal(t, []string{"and then"}, driver.followUps)
}

func TestNewCallbackRuntime(t *testing.T) {
	var prompts, followUps []string
	runtime := NewCallbackRuntime(types.NewSessionID(),
		func(_ context.Context, text string) error {
			prompts = append(prompts, text)
			return nil
		},
		func(_ context.Context, text string) error {
			followUps = append(followUps, text)
			return nil
		},
	)

	require.NoError(t, runtime.DeliverPrompt(context.Background(), "go"))
	require.NoError(t, runtime.DeliverFollowUp(context.Background(), "more"))
	assert.Equal(t, []string{"go"}, prompts)
	assert.Equal(t, []string{"more"}, followUps)
}

func TestRuntime_StreamingFlag(t *testing.T) {
	runtime := NewRuntime(types.NewSessionID(), &recordingDriver{})

	assert.False(t, runtime.IsStreaming())
	runtime.SetStreaming(true)
	assert.True(t, runtime.IsStreaming())
	runtime.SetStreaming(false)
	assert.False(t, runtime.IsStreaming())
}
