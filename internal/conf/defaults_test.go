package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetDefaultConfigPopulatesExpectedKeys(t *testing.T) {
	viper.Reset()
	setDefaultConfig()

	assert.Equal(t, false, viper.GetBool("debug"))
	assert.Equal(t, "http://0.0.0.0:8080", viper.GetString("jsonrpc.url"))
	assert.Equal(t, "./spectra", viper.GetString("datadir.datadir"))
	assert.Equal(t, "100ms", viper.GetString("scheduler.tickinterval"))
	assert.Equal(t, 100, viper.GetInt("log.maxsizemb"))
	assert.Equal(t, 5, viper.GetInt("log.maxbackups"))
}
