package validation

import (
	"testing"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(t *testing.T, cores, gpus int) *topology.Node {
	t.Helper()
	n, err := topology.New(cores, gpus)
	require.NoError(t, err)
	return n
}

func mustApp(t *testing.T, name string, opts ...app.Option) *app.Application {
	t.Helper()
	a, err := app.New(name, "/bin/"+name, opts...)
	require.NoError(t, err)
	return a
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []app.Option
		wantErr error
	}{
		{"single rank", nil, nil},
		{"multi rank", []app.Option{app.WithRanks(8), app.WithRanksPerNode(4)}, nil},
		{"zero ranks", []app.Option{app.WithRanks(0)}, errors.ErrInvalidRanks},
		{"single rank spread", []app.Option{app.WithRanksPerNode(2)}, errors.ErrInconsistentRanksPerNode},
		{"missing ranks per node", []app.Option{app.WithRanks(4)}, errors.ErrMissingRanksPerNode},
		{"share without cores", []app.Option{app.WithShareKey("grp")}, errors.ErrMissingCoresPerRankForSharing},
		{"share with cores", []app.Option{app.WithShareKey("grp"), app.WithCoresPerRank(2)}, nil},
		{
			"both gpu forms",
			[]app.Option{app.WithGPUsPerRank(app.GPUsPerRank(1)), app.WithRanksPerGPU(app.RanksPerGPU(1))},
			errors.ErrAmbiguousGPUSpec,
		},
		{
			"uneven gpu groups",
			[]app.Option{app.WithRanks(6), app.WithRanksPerNode(6), app.WithRanksPerGPU(app.RanksPerGPU(4))},
			errors.ErrUnevenGPUGroups,
		},
		{
			"even gpu groups",
			[]app.Option{app.WithRanks(8), app.WithRanksPerNode(8), app.WithRanksPerGPU(app.RanksPerGPU(4))},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustApp(t, "sim", tt.opts...)
			err := Validate(a, node(t, 8, 4))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsValidationError(err))
			name, ok := errors.GetApplication(err)
			assert.True(t, ok)
			assert.Equal(t, "sim", name)
		})
	}
}

func TestValidate_DefaultsRanksPerNode(t *testing.T) {
	a := mustApp(t, "A")
	require.Equal(t, 0, a.RanksPerNode)

	require.NoError(t, Validate(a, node(t, 1, 0)))
	assert.Equal(t, 1, a.RanksPerNode)
}

func TestValidate_OrderOfChecks(t *testing.T) {
	// zero ranks wins over every later problem
	a := mustApp(t, "sim",
		app.WithRanks(0),
		app.WithShareKey("grp"),
		app.WithGPUsPerRank(app.GPUsPerRank(1)),
		app.WithRanksPerGPU(app.RanksPerGPU(1)),
	)
	assert.ErrorIs(t, Validate(a, node(t, 4, 0)), errors.ErrInvalidRanks)

	// missing ranks per node is reported before sharing problems
	b := mustApp(t, "sim", app.WithRanks(2), app.WithShareKey("grp"))
	assert.ErrorIs(t, Validate(b, node(t, 4, 0)), errors.ErrMissingRanksPerNode)
}

func TestValidate_NilNode(t *testing.T) {
	assert.ErrorIs(t, Validate(mustApp(t, "sim"), nil), errors.ErrInvalidTopology)
}

func TestValidate_LoginNode(t *testing.T) {
	a, err := app.NewLoginNode("driver", "/bin/driver", 2)
	require.NoError(t, err)
	assert.NoError(t, Validate(a, node(t, 4, 0)))
}

func TestValidateAll_FailFast(t *testing.T) {
	good := mustApp(t, "good")
	bad := mustApp(t, "bad", app.WithRanks(3))
	untouched := mustApp(t, "later")

	err := ValidateAll([]*app.Application{good, bad, untouched}, node(t, 4, 0))
	assert.ErrorIs(t, err, errors.ErrMissingRanksPerNode)
	assert.Equal(t, 1, good.RanksPerNode)
	assert.Equal(t, 0, untouched.RanksPerNode, "validation stops at the first failure")
}
