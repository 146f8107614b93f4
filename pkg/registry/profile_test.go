package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/registry"
)

func testMod(name string) *registry.Mod {
	return &registry.Mod{
		ID:   registry.ModID(name, "1.0.0", "tester"),
		Meta: registry.Meta{Name: name, Version: "1.0.0", Author: "tester"},
	}
}

func testProfile(t *testing.T, names ...string) *registry.Profile {
	t.Helper()
	p := registry.NewProfile("default")
	for _, n := range names {
		require.NoError(t, p.Add(testMod(n), true, nil))
	}
	return p
}

func ids(p *registry.Profile) []string {
	out := make([]string, len(p.Mods))
	for i, ref := range p.Mods {
		out[i] = ref.Name
	}
	return out
}

func TestProfileAddAssignsPriorityByPosition(t *testing.T) {
	p := testProfile(t, "alpha", "beta", "gamma")

	prio, ok := p.Priority(registry.ModID("beta", "1.0.0", "tester"))
	require.True(t, ok)
	assert.Equal(t, 1, prio)

	prio, ok = p.Priority(registry.ModID("gamma", "1.0.0", "tester"))
	require.True(t, ok)
	assert.Equal(t, 2, prio)
}

func TestProfileAddRejectsDuplicate(t *testing.T) {
	p := testProfile(t, "alpha")
	err := p.Add(testMod("alpha"), true, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModInvalid))
}

func TestProfileRemoveKeepsPrioritiesContiguous(t *testing.T) {
	p := testProfile(t, "alpha", "beta", "gamma")
	require.NoError(t, p.Remove(registry.ModID("beta", "1.0.0", "tester")))

	assert.Equal(t, []string{"alpha", "gamma"}, ids(p))
	prio, ok := p.Priority(registry.ModID("gamma", "1.0.0", "tester"))
	require.True(t, ok)
	assert.Equal(t, 1, prio)
}

func TestProfileRemoveUnknown(t *testing.T) {
	p := testProfile(t, "alpha")
	err := p.Remove("deadbeef")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModNotFound))
}

func TestProfileMoveSlidesBetween(t *testing.T) {
	p := testProfile(t, "alpha", "beta", "gamma", "delta")

	require.NoError(t, p.Move(registry.ModID("delta", "1.0.0", "tester"), 0))
	assert.Equal(t, []string{"delta", "alpha", "beta", "gamma"}, ids(p))

	require.NoError(t, p.Move(registry.ModID("delta", "1.0.0", "tester"), 2))
	assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, ids(p))
}

func TestProfileMoveOutOfRange(t *testing.T) {
	p := testProfile(t, "alpha", "beta")
	err := p.Move(registry.ModID("alpha", "1.0.0", "tester"), 2)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModInvalid))
}

func TestProfileReorder(t *testing.T) {
	p := testProfile(t, "alpha", "beta", "gamma")
	require.NoError(t, p.Reorder([]string{
		registry.ModID("gamma", "1.0.0", "tester"),
		registry.ModID("alpha", "1.0.0", "tester"),
		registry.ModID("beta", "1.0.0", "tester"),
	}))
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, ids(p))
}

func TestProfileReorderRequiresFullPermutation(t *testing.T) {
	p := testProfile(t, "alpha", "beta")

	err := p.Reorder([]string{registry.ModID("alpha", "1.0.0", "tester")})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModInvalid))

	err = p.Reorder([]string{registry.ModID("alpha", "1.0.0", "tester"), "deadbeef"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModNotFound))
}

func TestProfileSetEnabled(t *testing.T) {
	p := testProfile(t, "alpha", "beta")
	id := registry.ModID("alpha", "1.0.0", "tester")

	require.NoError(t, p.SetEnabled(id, false))
	ref, ok := p.Ref(id)
	require.True(t, ok)
	assert.False(t, ref.Enabled)

	// Disabling does not vacate the priority slot.
	prio, ok := p.Priority(id)
	require.True(t, ok)
	assert.Equal(t, 0, prio)

	enabled := p.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "beta", enabled[0].Name)
}

func TestProfileSelectOptionsValidates(t *testing.T) {
	mod := testMod("alpha")
	mod.Meta.Options = []registry.OptionGroup{
		{Name: "textures", Options: []registry.Option{{Name: "hd"}, {Name: "sd"}}},
	}
	p := registry.NewProfile("default")
	require.NoError(t, p.Add(mod, true, nil))

	require.NoError(t, p.SelectOptions(mod, []string{"hd"}))
	ref, _ := p.Ref(mod.ID)
	assert.Equal(t, []string{"hd"}, ref.Options)

	err := p.SelectOptions(mod, []string{"hd", "sd"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModInvalid))
}
