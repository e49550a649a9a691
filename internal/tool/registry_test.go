package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(_ context.Context, args Args) (Result, error) {
	return Say("echo " + args.String("text")), nil
}

var echoDesc = Descriptor{
	Name:        "echo",
	Description: "Repeat the text.",
	Params:      []Param{{Name: "text", Type: String, Required: true}},
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDesc, echo))
	require.Error(t, r.Register(echoDesc, echo))
}

func TestRegisterValidatesDescriptor(t *testing.T) {
	cases := []struct {
		name string
		desc Descriptor
	}{
		{"empty name", Descriptor{Description: "x"}},
		{"camel case", Descriptor{Name: "openApp", Description: "x"}},
		{"no description", Descriptor{Name: "x"}},
		{"bad param type", Descriptor{Name: "x", Description: "x", Params: []Param{{Name: "a", Type: "array"}}}},
		{"duplicate param", Descriptor{Name: "x", Description: "x", Params: []Param{
			{Name: "a", Type: String}, {Name: "a", Type: String},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			assert.Error(t, r.Register(tc.desc, echo))
		})
	}
}

func TestSealedRegistryRejectsRegistration(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	err := r.Register(echoDesc, echo)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestDescriptorsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(Descriptor{Name: name, Description: name}, echo))
	}

	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestLookupUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))

	var ute *UnknownToolError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "nope", ute.Name)
}

func TestInvokeValidatesArgs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDesc, echo))
	require.NoError(t, r.Register(Descriptor{
		Name:        "count",
		Description: "Count.",
		Params:      []Param{{Name: "n", Type: Integer}},
	}, func(_ context.Context, a Args) (Result, error) {
		return Result{Output: a.String("n")}, nil
	}))

	_, err := r.Invoke(context.Background(), "echo", Args{})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidArgument, te.Kind)

	_, err = r.Invoke(context.Background(), "echo", Args{"text": 5.0})
	require.Error(t, err)

	_, err = r.Invoke(context.Background(), "count", Args{"n": 2.5})
	require.Error(t, err)

	res, err := r.Invoke(context.Background(), "count", Args{"n": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "3", res.Output)

	res, err = r.Invoke(context.Background(), "echo", Args{"text": " hi "})
	require.NoError(t, err)
	assert.Equal(t, "echo hi", res.Speech)
}

func TestInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "boom", Description: "Explodes."},
		func(context.Context, Args) (Result, error) { panic("kaboom") }))

	_, err := r.Invoke(context.Background(), "boom", nil)
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInternal, te.Kind)
}

func TestParseArgs(t *testing.T) {
	a, err := ParseArgs("")
	require.NoError(t, err)
	assert.Empty(t, a)

	a, err = ParseArgs(`{"filename":"a.txt","n":2}`)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", a.String("filename"))
	assert.Equal(t, 2, a.Int("n"))

	_, err = ParseArgs(`{`)
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	e := NotFound("I couldn't find a.txt on your desktop.", "File 'a.txt' not found.")
	assert.Equal(t, "Failure: File 'a.txt' not found.", e.Message())

	e = Internal("Sorry.", "Could not create file.", errors.New("disk full"))
	assert.Equal(t, "Failure: Could not create file. Error: disk full", e.Message())
	assert.ErrorContains(t, e, "disk full")
}
