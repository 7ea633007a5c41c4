package assets

import (
	"context"
	"testing"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendor_CopiesEnabledPackages(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Vendors = map[string]config.VendorToggle{
		"jquery":    {JS: true},
		"bootstrap": {JS: false},
	}
	for _, f := range VendorPackages["jquery"].JS {
		env.write(t, "node_modules/"+f, f)
	}
	env.write(t, "js/vendor/stale.js", "old")

	require.NoError(t, pipeline.NewRunner(2).Run(context.Background(), env.builder.Vendor()))

	assert.False(t, env.exists("js/vendor/stale.js"))
	assert.True(t, env.exists("js/vendor/jquery.js"))
	assert.True(t, env.exists("js/vendor/jquery.min.js"))
	assert.True(t, env.exists("js/vendor/jquery.min.map"))
	assert.False(t, env.exists("js/vendor/bootstrap.js"))
	assert.False(t, env.exists("css/vendor"))
}

func TestVendor_MissingDistFile(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Vendors = map[string]config.VendorToggle{"popper": {JS: true}}

	err := pipeline.NewRunner(1).Run(context.Background(), env.builder.Vendor())
	require.Error(t, err)
	var taskErr *pipeline.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "vendor:js", taskErr.Task)
}

func TestVendor_UnknownPackage(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Vendors = map[string]config.VendorToggle{"lodash": {JS: true}}

	err := pipeline.NewRunner(1).Run(context.Background(), env.builder.Vendor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown vendor package "lodash"`)
}
