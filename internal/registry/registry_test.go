package registry

import (
	"errors"
	"testing"

	"switchboard/internal/function"
	"switchboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func stubFactory(name string) function.Factory {
	return func(*zap.Logger) (function.Handler, error) {
		return testutil.NewStubFunction(name), nil
	}
}

func TestLoad_PreservesConfiguredOrder(t *testing.T) {
	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
		"beta":  stubFactory("beta"),
		"gamma": stubFactory("gamma"),
	}

	reg, err := Load([]string{"gamma", "alpha", "beta"}, factories, testutil.NewTestLogger())
	assert.NoError(t, err)
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, reg.Names())

	descs := reg.List()
	assert.Len(t, descs, 3)
	assert.Equal(t, "gamma", descs[0].Name)
	assert.Equal(t, "beta", descs[2].Name)
}

func TestLoad_UnknownFunctionIsIsolated(t *testing.T) {
	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
	}

	reg, err := Load([]string{"alpha", "missing"}, factories, testutil.NewTestLogger())
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.Get("missing")
	assert.False(t, ok)
	_, ok = reg.Get("alpha")
	assert.True(t, ok)
}

func TestLoad_FactoryFailureIsIsolated(t *testing.T) {
	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
		"broken": func(*zap.Logger) (function.Handler, error) {
			return nil, errors.New("construction failed")
		},
	}

	reg, err := Load([]string{"broken", "alpha"}, factories, testutil.NewTestLogger())
	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, reg.Names())
}

func TestLoad_DuplicateNameIsFatal(t *testing.T) {
	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
	}

	_, err := Load([]string{"alpha", "alpha"}, factories, testutil.NewTestLogger())
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestLoad_DuplicateCommandIsFatal(t *testing.T) {
	shadow := testutil.NewStubFunction("shadow")
	shadow.Descriptor.SlashCommand = "/alpha"

	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
		"shadow": func(*zap.Logger) (function.Handler, error) {
			return shadow, nil
		},
	}

	_, err := Load([]string{"alpha", "shadow"}, factories, testutil.NewTestLogger())
	assert.ErrorIs(t, err, ErrDuplicateCommand)
}

func TestLoad_InvalidDescriptorIsIsolated(t *testing.T) {
	bad := testutil.NewStubFunction("bad")
	bad.Descriptor.SlashCommand = "bad" // missing the leading slash

	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
		"bad": func(*zap.Logger) (function.Handler, error) {
			return bad, nil
		},
	}

	reg, err := Load([]string{"bad", "alpha"}, factories, testutil.NewTestLogger())
	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, reg.Names())
}

func TestRegistry_ByCommand(t *testing.T) {
	factories := map[string]function.Factory{
		"alpha": stubFactory("alpha"),
	}

	reg, err := Load([]string{"alpha"}, factories, testutil.NewTestLogger())
	assert.NoError(t, err)

	name, ok := reg.ByCommand("/alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha", name)

	_, ok = reg.ByCommand("/nope")
	assert.False(t, ok)
}

func TestLoad_BuiltinsSatisfyContract(t *testing.T) {
	reg, err := Load([]string{"echo", "whoami"}, function.Builtins(), testutil.NewTestLogger())
	assert.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	for _, desc := range reg.List() {
		assert.NotEmpty(t, desc.DisplayName)
		assert.NotEmpty(t, desc.Description)
		assert.NotEmpty(t, desc.HelpText)
	}
}
